package asdf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	stdbinary "encoding/binary"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-asdf/internal/binary"
	"github.com/robert-malhotra/go-asdf/internal/block"
)

const (
	// headerLine is the first line of every document.
	headerLine = "#ASDF 1.0.0"

	// docTerminator ends the YAML segment; the block section follows.
	docTerminator = "..."

	// blockMagic starts every internal block header.
	blockMagic = "\xd3BLK"

	// blockHeaderSize is the byte length of the fields after the header
	// size word: flags (4), allocated (8), used (8).
	blockHeaderSize = 20
)

// File is one open document: a decoded tree plus the block registry that
// backs its array views. Array data is not read until a view's elements
// are touched.
type File struct {
	tree   map[string]any
	blocks *block.Manager

	closer io.Closer
	closed bool
}

// NewFile creates an in-memory document around the given tree, ready to
// be written with WriteTo.
func NewFile(tree map[string]any) *File {
	return &File{tree: tree, blocks: block.NewManager()}
}

// Tree returns the document tree. Array values in it are lazy views.
func (f *File) Tree() map[string]any {
	return f.tree
}

// Blocks returns the document's block registry.
func (f *File) Blocks() *block.Manager {
	return f.blocks
}

// Open reads the document at path. The file stays open for deferred
// block reads until Close is called.
func Open(path string) (*File, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f, err := Read(fd)
	if err != nil {
		fd.Close()
		return nil, err
	}
	f.closer = fd
	return f, nil
}

// Close releases the backing file, if any. Views that have not loaded
// their block yet fail afterwards.
func (f *File) Close() error {
	if f.closed || f.closer == nil {
		f.closed = true
		return nil
	}
	f.closed = true
	return f.closer.Close()
}

// Read parses a document from r. The YAML segment is decoded eagerly;
// internal blocks are only indexed, their bytes staying in r until a
// view touches them.
func Read(r io.ReaderAt) (*File, error) {
	doc, blockPos, err := scanYAMLSegment(r)
	if err != nil {
		return nil, err
	}

	mgr := block.NewManager()
	if err := scanBlocks(r, blockPos, mgr); err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("parsing document tree: %w", err)
	}

	tree := map[string]any{}
	if len(root.Content) > 0 {
		v, err := nodeToValue(root.Content[0], mgr, "")
		if err != nil {
			return nil, err
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("document root is %T, want a mapping", v)
		}
		tree = m
	}

	return &File{tree: tree, blocks: mgr}, nil
}

// scanYAMLSegment validates the header line, collects the YAML document
// text up to the terminator line, and returns it with the byte offset of
// the block section.
func scanYAMLSegment(r io.ReaderAt) ([]byte, int64, error) {
	br := bufio.NewReader(io.NewSectionReader(r, 0, 1<<62))
	var pos int64

	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, err
	}
	pos += int64(len(first))
	if strings.TrimRight(first, "\r\n") != headerLine {
		return nil, 0, fmt.Errorf("not a recognized document: header line %q", strings.TrimRight(first, "\r\n"))
	}

	var doc strings.Builder
	for {
		line, err := br.ReadString('\n')
		pos += int64(len(line))
		if strings.TrimRight(line, "\r\n") == docTerminator {
			break
		}
		doc.WriteString(line)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, err
		}
	}
	return []byte(doc.String()), pos, nil
}

// scanBlocks walks the block section starting at pos, registering each
// internal block with the manager without reading its payload.
func scanBlocks(r io.ReaderAt, pos int64, mgr *block.Manager) error {
	rd := binary.NewReader(r, stdbinary.BigEndian).At(pos)
	for {
		magic, err := rd.Peek(len(blockMagic))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("scanning block section: %w", err)
		}
		if string(magic) != blockMagic {
			return nil
		}
		rd.Skip(int64(len(blockMagic)))

		headerSize, err := rd.ReadUint16()
		if err != nil {
			return fmt.Errorf("reading block header: %w", err)
		}
		if int(headerSize) < blockHeaderSize {
			return fmt.Errorf("block header size %d too small (need %d)", headerSize, blockHeaderSize)
		}
		headerEnd := rd.Pos() + int64(headerSize)

		if _, err = rd.ReadUint32(); err != nil { // flags
			return fmt.Errorf("reading block header: %w", err)
		}
		allocated, err := rd.ReadUint64()
		if err != nil {
			return fmt.Errorf("reading block header: %w", err)
		}
		used, err := rd.ReadUint64()
		if err != nil {
			return fmt.Errorf("reading block header: %w", err)
		}
		if used > allocated {
			return fmt.Errorf("block declares %d used of %d allocated bytes", used, allocated)
		}

		mgr.AddRead(block.Internal, r, headerEnd, int64(used))
		rd = rd.At(headerEnd + int64(allocated))
	}
}
