package asdf

import (
	"fmt"
	"io"
	"os"

	stdbinary "encoding/binary"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-asdf/internal/binary"
	"github.com/robert-malhotra/go-asdf/internal/block"
)

// WriteTo serializes the document to w: header line, YAML tree,
// terminator, then one block per distinct backing allocation in source
// order. The manager is frozen before a single block byte goes out, so
// the source indices embedded in the tree cannot be invalidated by the
// block section.
func (f *File) WriteTo(w io.Writer, opts ...WriteOption) error {
	o := defaultWriteOptions()
	for _, opt := range opts {
		opt(o)
	}

	mgr := block.NewManager()
	enc := &encoder{mgr: mgr, opts: o}
	root, err := enc.treeToNode(f.tree, "")
	if err != nil {
		return err
	}
	mgr.Freeze()
	f.blocks = mgr

	if _, err := fmt.Fprintln(w, headerLine); err != nil {
		return err
	}
	ye := yaml.NewEncoder(w)
	ye.SetIndent(2)
	if err := ye.Encode(root); err != nil {
		return fmt.Errorf("encoding document tree: %w", err)
	}
	if err := ye.Close(); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, docTerminator); err != nil {
		return err
	}

	if mgr.Len() == 0 {
		return nil
	}
	buf := &binary.Buffer{}
	bw := binary.NewWriter(buf, stdbinary.BigEndian)
	for blk := range mgr.InternalBlocks() {
		if err := writeBlock(bw, blk); err != nil {
			return err
		}
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// Write serializes the tree to a new document at path.
func Write(path string, tree map[string]any, opts ...WriteOption) error {
	fd, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := NewFile(tree).WriteTo(fd, opts...); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

// writeBlock emits one block: magic, header size word, header fields,
// payload. Allocated always equals used; no slack is reserved.
func writeBlock(w *binary.Writer, blk *block.Block) error {
	data, err := blk.Data()
	if err != nil {
		return err
	}
	if err := w.WriteBytes([]byte(blockMagic)); err != nil {
		return err
	}
	if err := w.WriteUint16(blockHeaderSize); err != nil {
		return err
	}
	if err := w.WriteUint32(0); err != nil { // flags
		return err
	}
	if err := w.WriteUint64(uint64(len(data))); err != nil { // allocated
		return err
	}
	if err := w.WriteUint64(uint64(len(data))); err != nil { // used
		return err
	}
	return w.WriteBytes(data)
}
