// Package block manages the binary payloads backing array views within
// one document: identity, deduplication, ordering, and deferred I/O.
package block

import (
	"fmt"
	"io"

	"github.com/zeebo/errs"
)

// Error classes for block resolution failures.
var (
	// ErrReference is the class for source indices that resolve to no
	// registered block.
	ErrReference = errs.Class("block reference")

	// ErrOverlap is the class for ambiguous aliasing: a registered
	// region that partially (non-nested) overlaps an existing block.
	ErrOverlap = errs.Class("block overlap")
)

// Storage is a block's storage class.
type Storage uint8

const (
	// Internal blocks live in the document's block section.
	Internal Storage = iota
	// Inline blocks are serialized as literal values in the tree and
	// never reach the block section.
	Inline
	// External blocks live outside the document; their bytes are read
	// from a caller-supplied source.
	External
)

// String returns the storage class name.
func (s Storage) String() string {
	switch s {
	case Internal:
		return "internal"
	case Inline:
		return "inline"
	case External:
		return "external"
	default:
		return fmt.Sprintf("storage(%d)", uint8(s))
	}
}

// Block is one distinct binary payload. Blocks are created and owned by
// a Manager; views reference them by source index and never copy them.
//
// A block is either loaded (bytes held) or unloaded (position recorded,
// bytes deferred). Data is the only operation that performs I/O.
type Block struct {
	index   int
	storage Storage
	size    int64

	loaded bool
	data   []byte

	// Read-side deferral: where the bytes live until first touch.
	src io.ReaderAt
	pos int64
}

// Index returns the block's registration index within its document.
func (b *Block) Index() int {
	return b.index
}

// Storage returns the block's storage class.
func (b *Block) Storage() Storage {
	return b.storage
}

// MarkInline forces the block's storage class to inline, overriding any
// size heuristic. Inline blocks are skipped by the block section writer.
func (b *Block) MarkInline() {
	b.storage = Inline
}

// Size returns the block's byte length.
func (b *Block) Size() int64 {
	return b.size
}

// Loaded reports whether the block's bytes are held in memory. Metadata
// introspection must leave this false for blocks read from a document.
func (b *Block) Loaded() bool {
	return b.loaded
}

// Data returns the block's bytes, reading them from the backing source
// on first call. The read is idempotent: subsequent calls return the
// cached slice, which every aliasing view shares.
func (b *Block) Data() ([]byte, error) {
	if b.loaded {
		return b.data, nil
	}
	if b.src == nil {
		return nil, ErrReference.New("block %d has no backing source", b.index)
	}
	buf := make([]byte, b.size)
	if _, err := b.src.ReadAt(buf, b.pos); err != nil {
		return nil, fmt.Errorf("reading block %d (%d bytes at %d): %w", b.index, b.size, b.pos, err)
	}
	b.data = buf
	b.loaded = true
	return b.data, nil
}
