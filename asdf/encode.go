package asdf

import (
	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-asdf/internal/block"
	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

// ndarrayTag marks array nodes in the tree.
const ndarrayTag = "!core/ndarray"

// encoder turns tree values into YAML nodes, registering array buffers
// with the document's block manager as it goes. The manager is passed
// in explicitly; there is no ambient per-process state.
type encoder struct {
	mgr  *block.Manager
	opts *writeOptions
}

// encodeArray emits the descriptor node for one array view.
func (e *encoder) encodeArray(a *NDArray, path string) (*yaml.Node, error) {
	if err := a.dt.Validate(); err != nil {
		return nil, wrapPath(path, err)
	}
	if a.inline || (e.opts.inlineThreshold > 0 && a.NumElements() <= e.opts.inlineThreshold) {
		return e.encodeInline(a, path)
	}
	return e.encodeBlock(a, path)
}

// encodeInline serializes the elements as a literal nested sequence. A
// plain native array becomes a bare tagged sequence; anything that needs
// extra keys (pinned byte order, non-natural dtype, mask) becomes a
// mapping with a data key.
func (e *encoder) encodeInline(a *NDArray, path string) (*yaml.Node, error) {
	raw, err := a.data()
	if err != nil {
		return nil, wrapPath(path, err)
	}
	dataNode, err := a.literalNode(raw, nil)
	if err != nil {
		return nil, wrapPath(path, err)
	}

	if e.bareInlineOK(a) {
		dataNode.Tag = ndarrayTag
		return dataNode, nil
	}

	m := &yaml.Node{Kind: yaml.MappingNode, Tag: ndarrayTag}
	m.Content = append(m.Content, strNode("data"), dataNode)
	if a.dt.IsStructured() {
		m.Content = append(m.Content, strNode("dtype"), dtype.ToNode(a.dt))
	} else if !naturalKind(a.dt.Kind) {
		m.Content = append(m.Content, strNode("dtype"), dtype.ToNode(a.dt))
	}
	if !a.dt.IsStructured() && a.dt.Order != dtype.Native {
		m.Content = append(m.Content, strNode("byteorder"), strNode(a.dt.Order.String()))
	}
	if a.sentinel {
		m.Content = append(m.Content, strNode("mask"), nanNode())
	} else if a.mask != nil {
		maskNode, err := e.encodeArray(a.mask, path+"/mask")
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, strNode("mask"), maskNode)
	}
	return m, nil
}

// bareInlineOK reports whether the array round-trips as a bare literal
// sequence with no descriptor keys.
func (e *encoder) bareInlineOK(a *NDArray) bool {
	return !a.dt.IsStructured() &&
		a.dt.Order == dtype.Native &&
		naturalKind(a.dt.Kind) &&
		!a.HasMask()
}

// naturalKind reports kinds that literal YAML scalars decode back to
// without an explicit dtype key.
func naturalKind(k dtype.Kind) bool {
	switch k {
	case dtype.Bool8, dtype.Int64, dtype.Float64:
		return true
	}
	return false
}

// encodeBlock registers the view's backing allocation with the block
// manager and emits a source descriptor.
func (e *encoder) encodeBlock(a *NDArray, path string) (*yaml.Node, error) {
	var (
		blk  *block.Block
		base int64
		err  error
	)
	switch {
	case a.buf != nil:
		blk, base, err = e.mgr.GetOrCreate(a.buf, a.buf.data, 0, int64(len(a.buf.data)))
	case a.blk != nil:
		// Re-serializing a decoded document: the block itself is the
		// owner identity, so aliasing views still collapse to one block.
		var data []byte
		if data, err = a.blk.Data(); err != nil {
			return nil, wrapPath(path, err)
		}
		blk, base, err = e.mgr.GetOrCreate(a.blk, data, 0, int64(len(data)))
	default:
		return nil, ErrReference.New("%s: array view has no backing data", path)
	}
	if err != nil {
		return nil, wrapPath(path, err)
	}

	source, err := e.mgr.SourceIndex(blk)
	if err != nil {
		return nil, wrapPath(path, err)
	}

	off := a.offset - base
	lo, hi := viewSpan(a.shape, a.effStrides(), a.dt.ItemSize())
	if off+lo < 0 || off+hi > blk.Size() {
		return nil, ErrSizeMismatch.New("%s: view spans [%d, %d) outside block %d of %d bytes",
			path, off+lo, off+hi, source, blk.Size())
	}

	m := &yaml.Node{Kind: yaml.MappingNode, Tag: ndarrayTag}
	m.Content = append(m.Content, strNode("source"), intNode(int64(source)))
	m.Content = append(m.Content, strNode("shape"), intSeqNode(a.shape))
	m.Content = append(m.Content, strNode("dtype"), dtype.ToNode(a.dt))
	if !a.dt.IsStructured() && a.dt.Order != dtype.Native {
		m.Content = append(m.Content, strNode("byteorder"), strNode(a.dt.Order.String()))
	}
	if off != 0 {
		m.Content = append(m.Content, strNode("offset"), intNode(off))
	}
	if !a.isContiguous() {
		m.Content = append(m.Content, strNode("strides"), intSeqNode(a.strides))
	}
	if a.sentinel {
		m.Content = append(m.Content, strNode("mask"), nanNode())
	} else if a.mask != nil {
		maskNode, err := e.encodeArray(a.mask, path+"/mask")
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, strNode("mask"), maskNode)
	}
	return m, nil
}

// literalNode renders the elements under the index prefix as nested flow
// sequences.
func (a *NDArray) literalNode(raw []byte, prefix []int) (*yaml.Node, error) {
	if len(prefix) == len(a.shape) {
		off, err := a.elemOffset(prefix)
		if err != nil {
			return nil, err
		}
		return elementLiteral(a.dt, raw[off:off+int64(a.dt.ItemSize())])
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for i := 0; i < a.shape[len(prefix)]; i++ {
		child, err := a.literalNode(raw, append(prefix, i))
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, child)
	}
	return seq, nil
}

// elementLiteral renders one element. Structured elements become a flow
// sequence of field values in declaration order.
func elementLiteral(d *dtype.Dtype, b []byte) (*yaml.Node, error) {
	if !d.IsStructured() {
		return scalarLiteral(d, b), nil
	}
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	pos := 0
	for _, f := range d.Fields {
		count := 1
		for _, dim := range f.Shape {
			count *= dim
		}
		size := f.Type.ItemSize()
		if count == 1 {
			child, err := elementLiteral(f.Type, b[pos:pos+size])
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, child)
			pos += size
			continue
		}
		sub := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
		for i := 0; i < count; i++ {
			child, err := elementLiteral(f.Type, b[pos:pos+size])
			if err != nil {
				return nil, err
			}
			sub.Content = append(sub.Content, child)
			pos += size
		}
		seq.Content = append(seq.Content, sub)
	}
	return seq, nil
}

// viewSpan returns the byte range [lo, hi) touched by a view relative to
// its offset. Empty shapes span nothing.
func viewSpan(shape, strides []int, itemSize int) (lo, hi int64) {
	for _, d := range shape {
		if d == 0 {
			return 0, 0
		}
	}
	for k, d := range shape {
		extent := int64(d-1) * int64(strides[k])
		if extent < 0 {
			lo += extent
		} else {
			hi += extent
		}
	}
	return lo, hi + int64(itemSize)
}
