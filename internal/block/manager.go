package block

import (
	"fmt"
	"io"
	"iter"
)

// entry records one registered region of an owning allocation and the
// block that holds it.
type entry struct {
	blk      *Block
	off, end int64
}

// Manager is the per-document block registry: the single source of truth
// for block identity, ordering, and I/O deferral. It is passed explicitly
// to codec calls and is not safe for concurrent use (one writer or one
// reader per document).
type Manager struct {
	blocks  []*Block
	entries map[any][]*entry
	frozen  bool
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{entries: make(map[any][]*entry)}
}

// GetOrCreate registers the region [off, end) of the allocation
// identified by owner, whose full bytes are data. Identity is the owner
// handle plus the region, never a raw address.
//
// If an existing block's region contains the request, that block is
// reused. If the request contains an existing region, the block widens
// to the request (only until the manager is frozen). Two disjoint
// regions of one owner get distinct blocks. A partial, non-nested
// overlap is ambiguous aliasing and fails with ErrOverlap.
//
// The returned base is the block region's start within the owner; a
// view's descriptor offset is its own start minus base.
func (m *Manager) GetOrCreate(owner any, data []byte, off, end int64) (blk *Block, base int64, err error) {
	if off < 0 || end < off || end > int64(len(data)) {
		return nil, 0, fmt.Errorf("invalid region [%d, %d) for %d-byte allocation", off, end, len(data))
	}

	for _, e := range m.entries[owner] {
		switch {
		case off >= e.off && end <= e.end:
			return e.blk, e.off, nil
		case off <= e.off && end >= e.end:
			if m.frozen {
				return nil, 0, fmt.Errorf("cannot widen block %d: manager is frozen", e.blk.index)
			}
			e.off, e.end = off, end
			e.blk.data = data[off:end]
			e.blk.size = end - off
			return e.blk, e.off, nil
		case end <= e.off || off >= e.end:
			// Disjoint region of the same allocation; keep looking.
		default:
			return nil, 0, ErrOverlap.New(
				"region [%d, %d) partially overlaps block %d region [%d, %d)",
				off, end, e.blk.index, e.off, e.end)
		}
	}

	if m.frozen {
		return nil, 0, fmt.Errorf("cannot register new block: manager is frozen")
	}
	blk = &Block{
		index:   len(m.blocks),
		storage: Internal,
		size:    end - off,
		loaded:  true,
		data:    data[off:end],
	}
	m.blocks = append(m.blocks, blk)
	m.entries[owner] = append(m.entries[owner], &entry{blk: blk, off: off, end: end})
	return blk, off, nil
}

// AddRead registers a block discovered while reading a document. The
// bytes stay unloaded: only the position and length are recorded, and
// Data performs the deferred read.
func (m *Manager) AddRead(storage Storage, src io.ReaderAt, pos, size int64) *Block {
	blk := &Block{
		index:   len(m.blocks),
		storage: storage,
		size:    size,
		src:     src,
		pos:     pos,
	}
	m.blocks = append(m.blocks, blk)
	return blk
}

// Freeze fixes the set of blocks. After freezing, no block may be added
// or widened, so every source index derived from the manager stays valid
// for the document's lifetime. Freeze is called before any block byte is
// emitted.
func (m *Manager) Freeze() {
	m.frozen = true
}

// Len returns the total number of distinct blocks registered.
func (m *Manager) Len() int {
	return len(m.blocks)
}

// InternalBlocks returns a lazy, restartable sequence of the blocks with
// internal storage, in stable first-reference order. This order defines
// the on-disk emission order, and a block's position in it is the source
// index embedded in descriptors.
func (m *Manager) InternalBlocks() iter.Seq[*Block] {
	return func(yield func(*Block) bool) {
		for _, b := range m.blocks {
			if b.storage != Internal {
				continue
			}
			if !yield(b) {
				return
			}
		}
	}
}

// SourceIndex returns the block's position within the internal ordering.
func (m *Manager) SourceIndex(blk *Block) (int, error) {
	i := 0
	for b := range m.InternalBlocks() {
		if b == blk {
			return i, nil
		}
		i++
	}
	return 0, ErrReference.New("block %d is not an internal block", blk.index)
}

// Get resolves a descriptor's source index to its internal block.
func (m *Manager) Get(source int) (*Block, error) {
	if source < 0 {
		return nil, ErrReference.New("negative source index %d", source)
	}
	i := 0
	for b := range m.InternalBlocks() {
		if i == source {
			return b, nil
		}
		i++
	}
	return nil, ErrReference.New("source index %d out of range (%d internal blocks)", source, i)
}
