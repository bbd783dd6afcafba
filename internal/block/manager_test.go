package block

import (
	"testing"
)

func TestGetOrCreateDedup(t *testing.T) {
	m := NewManager()
	owner := new(int)
	data := make([]byte, 64)

	a, base, err := m.GetOrCreate(owner, data, 0, 64)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if base != 0 {
		t.Errorf("base = %d, want 0", base)
	}

	b, _, err := m.GetOrCreate(owner, data, 0, 64)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if a != b {
		t.Error("same region registered twice produced distinct blocks")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestGetOrCreateContainment(t *testing.T) {
	m := NewManager()
	owner := new(int)
	data := make([]byte, 64)

	full, _, err := m.GetOrCreate(owner, data, 0, 64)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	sub, base, err := m.GetOrCreate(owner, data, 16, 32)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sub != full {
		t.Error("contained region did not reuse the covering block")
	}
	if base != 0 {
		t.Errorf("base = %d, want 0", base)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestGetOrCreateWiden(t *testing.T) {
	m := NewManager()
	owner := new(int)
	data := make([]byte, 64)

	sub, _, err := m.GetOrCreate(owner, data, 16, 32)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if sub.Size() != 16 {
		t.Fatalf("Size() = %d, want 16", sub.Size())
	}

	full, base, err := m.GetOrCreate(owner, data, 0, 64)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if full != sub {
		t.Error("covering region did not widen the contained block")
	}
	if base != 0 {
		t.Errorf("base = %d, want 0", base)
	}
	if full.Size() != 64 {
		t.Errorf("Size() after widening = %d, want 64", full.Size())
	}

	m.Freeze()
	if _, _, err := m.GetOrCreate(owner, data, 0, 64); err != nil {
		t.Errorf("frozen manager rejected an exact reuse: %v", err)
	}
	if _, _, err := m.GetOrCreate(new(int), data, 0, 64); err == nil {
		t.Error("frozen manager accepted a new block")
	}
}

func TestGetOrCreateOverlap(t *testing.T) {
	m := NewManager()
	owner := new(int)
	data := make([]byte, 64)

	if _, _, err := m.GetOrCreate(owner, data, 0, 32); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	_, _, err := m.GetOrCreate(owner, data, 16, 48)
	if err == nil {
		t.Fatal("partial overlap was accepted")
	}
	if !ErrOverlap.Has(err) {
		t.Errorf("overlap error %v is not an overlap error", err)
	}
}

func TestGetOrCreateDisjoint(t *testing.T) {
	m := NewManager()
	owner := new(int)
	data := make([]byte, 64)

	a, _, err := m.GetOrCreate(owner, data, 0, 16)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	b, base, err := m.GetOrCreate(owner, data, 32, 48)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if a == b {
		t.Error("disjoint regions share a block")
	}
	if base != 32 {
		t.Errorf("base = %d, want 32", base)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestGetOrCreateBounds(t *testing.T) {
	m := NewManager()
	data := make([]byte, 8)
	if _, _, err := m.GetOrCreate(new(int), data, 0, 16); err == nil {
		t.Error("region past the allocation end was accepted")
	}
	if _, _, err := m.GetOrCreate(new(int), data, -1, 4); err == nil {
		t.Error("negative region start was accepted")
	}
}

func TestSourceOrdering(t *testing.T) {
	m := NewManager()
	data := make([]byte, 8)

	first, _, _ := m.GetOrCreate(new(int), data, 0, 8)
	second, _, _ := m.GetOrCreate(new(int), data, 0, 8)
	third, _, _ := m.GetOrCreate(new(int), data, 0, 8)
	second.MarkInline()

	var got []*Block
	for b := range m.InternalBlocks() {
		got = append(got, b)
	}
	if len(got) != 2 || got[0] != first || got[1] != third {
		t.Fatalf("InternalBlocks() skipped the wrong blocks: %d entries", len(got))
	}

	// The sequence restarts from the beginning on each range.
	n := 0
	for range m.InternalBlocks() {
		n++
	}
	if n != 2 {
		t.Errorf("second iteration yielded %d blocks, want 2", n)
	}

	if i, err := m.SourceIndex(third); err != nil || i != 1 {
		t.Errorf("SourceIndex(third) = %d, %v, want 1", i, err)
	}
	if _, err := m.SourceIndex(second); err == nil {
		t.Error("SourceIndex resolved an inline block")
	}

	blk, err := m.Get(1)
	if err != nil {
		t.Fatalf("Get(1): %v", err)
	}
	if blk != third {
		t.Error("Get(1) resolved the wrong block")
	}
	if _, err := m.Get(2); err == nil || !ErrReference.Has(err) {
		t.Errorf("Get(2) = %v, want a reference error", err)
	}
	if _, err := m.Get(-1); err == nil || !ErrReference.Has(err) {
		t.Errorf("Get(-1) = %v, want a reference error", err)
	}
}
