package asdf

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-asdf/internal/block"
	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

// decodeArray turns an ndarray descriptor node into a lazy view. For
// block-backed descriptors no data byte is read or copied here: the
// view records (block, offset, shape, strides, dtype) and defers I/O to
// first element access. Inline descriptors are parsed immediately, as
// the literals are already in the tree.
func decodeArray(node *yaml.Node, mgr *block.Manager, path string) (*NDArray, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Kind == yaml.SequenceNode {
		// Bare literal form: the node's data is the element sequence.
		return decodeInline(node, nil, nil, path)
	}
	if node.Kind != yaml.MappingNode {
		return nil, ErrDescriptor.New("%s: ndarray node must be a mapping or sequence", path)
	}

	var (
		srcNode, dataNode, shapeNode *yaml.Node
		dtypeNode, stridesNode       *yaml.Node
		offsetNode, maskNode         *yaml.Node
		byteorder                    string
	)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "source":
			srcNode = val
		case "data":
			dataNode = val
		case "shape":
			shapeNode = val
		case "dtype":
			dtypeNode = val
		case "byteorder":
			byteorder = val.Value
		case "offset":
			offsetNode = val
		case "strides":
			stridesNode = val
		case "mask":
			maskNode = val
		}
	}

	if srcNode != nil && dataNode != nil {
		return nil, ErrDescriptor.New("%s: source and data are mutually exclusive", path)
	}

	var dt *dtype.Dtype
	if dtypeNode != nil {
		var err error
		if dt, err = dtype.FromNode(dtypeNode, byteorder); err != nil {
			return nil, wrapPath(path, err)
		}
	}

	var shape []int
	if shapeNode != nil {
		var err error
		if shape, err = parseIntSeq(shapeNode, path, "shape"); err != nil {
			return nil, err
		}
		for _, d := range shape {
			if d < 0 {
				return nil, ErrDescriptor.New("%s: negative extent %d in shape %v", path, d, shape)
			}
		}
	}

	var a *NDArray
	switch {
	case dataNode != nil:
		var err error
		if a, err = decodeInline(dataNode, dt, shape, path); err != nil {
			return nil, err
		}
	case srcNode != nil:
		var err error
		if a, err = decodeBlockRef(srcNode, dt, shape, offsetNode, stridesNode, mgr, path); err != nil {
			return nil, err
		}
	default:
		return nil, ErrDescriptor.New("%s: ndarray node has neither source nor data", path)
	}

	if maskNode != nil {
		if err := decodeMask(a, maskNode, mgr, path); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// decodeBlockRef builds a lazy block-backed view, validating the
// descriptor against the resolved block without touching its bytes.
func decodeBlockRef(srcNode *yaml.Node, dt *dtype.Dtype, shape []int, offsetNode, stridesNode *yaml.Node, mgr *block.Manager, path string) (*NDArray, error) {
	if dt == nil {
		return nil, ErrDescriptor.New("%s: block-backed ndarray node is missing dtype", path)
	}
	if shape == nil {
		return nil, ErrDescriptor.New("%s: block-backed ndarray node is missing shape", path)
	}

	source, err := strconv.Atoi(srcNode.Value)
	if err != nil {
		return nil, ErrDescriptor.New("%s: source %q is not an integer", path, srcNode.Value)
	}
	blk, err := mgr.Get(source)
	if err != nil {
		return nil, wrapPath(path, err)
	}

	var offset int64
	if offsetNode != nil {
		if offset, err = strconv.ParseInt(offsetNode.Value, 10, 64); err != nil {
			return nil, ErrDescriptor.New("%s: offset %q is not an integer", path, offsetNode.Value)
		}
	}

	var strides []int
	if stridesNode != nil {
		if strides, err = parseIntSeq(stridesNode, path, "strides"); err != nil {
			return nil, err
		}
		if len(strides) != len(shape) {
			return nil, ErrDescriptor.New("%s: strides rank %d does not match shape rank %d",
				path, len(strides), len(shape))
		}
	}

	a := &NDArray{dt: dt, shape: shape, strides: strides, offset: offset, blk: blk}
	lo, hi := viewSpan(shape, a.effStrides(), dt.ItemSize())
	if offset+lo < 0 || offset+hi > blk.Size() {
		return nil, ErrSizeMismatch.New("%s: view spans [%d, %d) outside block %d of %d bytes",
			path, offset+lo, offset+hi, source, blk.Size())
	}
	return a, nil
}

// decodeMask applies a mask specification: a literal .nan scalar selects
// the sentinel convention, anything else is an explicit boolean array.
func decodeMask(a *NDArray, maskNode *yaml.Node, mgr *block.Manager, path string) error {
	if maskNode.Kind == yaml.AliasNode {
		maskNode = maskNode.Alias
	}
	if isNaNNode(maskNode) {
		if err := a.SetSentinelMask(); err != nil {
			return wrapPath(path, err)
		}
		return nil
	}
	mask, err := decodeArray(maskNode, mgr, path+"/mask")
	if err != nil {
		return err
	}
	if err := a.SetMask(mask); err != nil {
		return wrapPath(path, err)
	}
	return nil
}

// decodeInline parses a literal nested sequence into a fresh owned
// buffer. dt and declared shape may be nil, in which case they are
// inferred from the literals.
func decodeInline(dataNode *yaml.Node, dt *dtype.Dtype, declared []int, path string) (*NDArray, error) {
	if dataNode.Kind == yaml.AliasNode {
		dataNode = dataNode.Alias
	}
	// A declared shape is authoritative; inference is only for nodes
	// that carry none. fillLiteral still checks the data against it.
	shape := declared
	if shape == nil {
		shape = inferShape(dataNode, dt)
	}

	if dt == nil {
		dt = inferDtype(dataNode)
	}
	if err := dt.Validate(); err != nil {
		return nil, wrapPath(path, err)
	}

	n := 1
	for _, d := range shape {
		n *= d
	}
	raw := make([]byte, n*dt.ItemSize())
	pos := 0
	if err := fillLiteral(dataNode, dt, shape, raw, &pos, path); err != nil {
		return nil, err
	}

	a := newOwned(dt, raw, shape)
	a.inline = true
	return a, nil
}

// inferShape derives the array shape from sequence nesting. For a
// structured dtype the descent stops at the first node whose nesting
// matches one element of the dtype, so record sequences are never
// counted as dimensions even when every field value is itself a
// sequence.
func inferShape(node *yaml.Node, dt *dtype.Dtype) []int {
	var shape []int
	for node.Kind == yaml.SequenceNode {
		if dt != nil && dt.IsStructured() && matchesElement(node, dt) {
			break
		}
		shape = append(shape, len(node.Content))
		if len(node.Content) == 0 {
			break
		}
		node = node.Content[0]
	}
	return shape
}

// matchesElement reports whether node has exactly the nesting structure
// of one element of dt: a scalar for primitives, a sequence with one
// entry per field whose entries recursively match the field layouts.
func matchesElement(node *yaml.Node, dt *dtype.Dtype) bool {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if !dt.IsStructured() {
		return node.Kind == yaml.ScalarNode
	}
	if node.Kind != yaml.SequenceNode || len(node.Content) != len(dt.Fields) {
		return false
	}
	for i, f := range dt.Fields {
		c := node.Content[i]
		count := 1
		for _, dim := range f.Shape {
			count *= dim
		}
		if count == 1 {
			if !matchesElement(c, f.Type) {
				return false
			}
			continue
		}
		if c.Kind != yaml.SequenceNode || len(c.Content) != count {
			return false
		}
		for _, sub := range c.Content {
			if !matchesElement(sub, f.Type) {
				return false
			}
		}
	}
	return true
}

// inferDtype picks the widest literal kind present: float64 beats
// int64 beats bool8.
func inferDtype(node *yaml.Node) *dtype.Dtype {
	kind := dtype.Bool8
	var scan func(n *yaml.Node)
	scan = func(n *yaml.Node) {
		switch n.Kind {
		case yaml.SequenceNode:
			for _, c := range n.Content {
				scan(c)
			}
		case yaml.ScalarNode:
			switch n.Tag {
			case "!!float":
				kind = dtype.Float64
			case "!!int":
				if kind != dtype.Float64 {
					kind = dtype.Int64
				}
			}
		}
	}
	scan(node)
	return dtype.Primitive(kind, dtype.Native)
}

// fillLiteral packs the nested literal sequence into raw, advancing pos.
func fillLiteral(node *yaml.Node, dt *dtype.Dtype, shape []int, raw []byte, pos *int, path string) error {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if len(shape) == 0 {
		return fillElement(node, dt, raw, pos, path)
	}
	if node.Kind != yaml.SequenceNode {
		return ErrDescriptor.New("%s: expected a sequence of %d entries", path, shape[0])
	}
	if len(node.Content) != shape[0] {
		return ErrDescriptor.New("%s: ragged data: expected %d entries, got %d",
			path, shape[0], len(node.Content))
	}
	for i, child := range node.Content {
		if err := fillLiteral(child, dt, shape[1:], raw, pos, fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// fillElement packs one element: a scalar for primitives, a sequence of
// field values for structured dtypes.
func fillElement(node *yaml.Node, dt *dtype.Dtype, raw []byte, pos *int, path string) error {
	if !dt.IsStructured() {
		v, err := literalScalar(node, dt, path)
		if err != nil {
			return err
		}
		size := dt.ItemSize()
		if err := putScalar(dt.Kind, dt.Order.ByteOrder(), raw[*pos:*pos+size], v); err != nil {
			return ErrDescriptor.New("%s: %v", path, err)
		}
		*pos += size
		return nil
	}

	if node.Kind != yaml.SequenceNode || len(node.Content) != len(dt.Fields) {
		return ErrDescriptor.New("%s: structured element must be a sequence of %d field values",
			path, len(dt.Fields))
	}
	for i, f := range dt.Fields {
		fnode := node.Content[i]
		count := 1
		for _, dim := range f.Shape {
			count *= dim
		}
		if count == 1 {
			if err := fillElement(fnode, f.Type, raw, pos, path+"/"+f.Name); err != nil {
				return err
			}
			continue
		}
		if fnode.Kind != yaml.SequenceNode || len(fnode.Content) != count {
			return ErrDescriptor.New("%s: field %q must hold %d values", path, f.Name, count)
		}
		for _, sub := range fnode.Content {
			if err := fillElement(sub, f.Type, raw, pos, path+"/"+f.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// literalScalar parses one scalar literal for the target kind.
func literalScalar(node *yaml.Node, dt *dtype.Dtype, path string) (any, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, ErrDescriptor.New("%s: expected a scalar literal", path)
	}
	switch dt.Kind {
	case dtype.Complex64, dtype.Complex128:
		c, err := strconv.ParseComplex(node.Value, 128)
		if err != nil {
			return nil, ErrDescriptor.New("%s: %q is not a complex literal", path, node.Value)
		}
		return c, nil
	default:
		v, err := scalarValue(node)
		if err != nil {
			return nil, ErrDescriptor.New("%s: %q is not a %s literal", path, node.Value, dt.Kind)
		}
		return v, nil
	}
}

// parseIntSeq parses a flow sequence of integers.
func parseIntSeq(node *yaml.Node, path, key string) ([]int, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, ErrDescriptor.New("%s: %s must be a sequence", path, key)
	}
	out := make([]int, 0, len(node.Content))
	for _, c := range node.Content {
		v, err := strconv.Atoi(c.Value)
		if err != nil {
			return nil, ErrDescriptor.New("%s: %s entry %q is not an integer", path, key, c.Value)
		}
		out = append(out, v)
	}
	return out, nil
}
