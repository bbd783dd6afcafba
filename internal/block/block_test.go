package block

import (
	"bytes"
	"io"
	"testing"
)

// countingReaderAt counts ReadAt calls to observe deferred I/O.
type countingReaderAt struct {
	r     io.ReaderAt
	reads int
}

func (c *countingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	c.reads++
	return c.r.ReadAt(p, off)
}

func TestBlockDeferredRead(t *testing.T) {
	payload := []byte("0123456789abcdef")
	src := &countingReaderAt{r: bytes.NewReader(payload)}

	m := NewManager()
	blk := m.AddRead(Internal, src, 4, 8)

	if blk.Loaded() {
		t.Fatal("freshly indexed block reports loaded")
	}
	if blk.Size() != 8 {
		t.Fatalf("Size() = %d, want 8", blk.Size())
	}
	if src.reads != 0 {
		t.Fatalf("metadata access performed %d reads", src.reads)
	}

	data, err := blk.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if string(data) != "456789ab" {
		t.Errorf("Data() = %q, want %q", data, "456789ab")
	}
	if !blk.Loaded() {
		t.Error("block not loaded after Data")
	}

	again, err := blk.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if src.reads != 1 {
		t.Errorf("Data performed %d reads, want 1", src.reads)
	}
	// The cached slice is shared, not re-copied.
	again[0] = 'X'
	if data[0] != 'X' {
		t.Error("second Data call returned a distinct slice")
	}
}

func TestBlockNoSource(t *testing.T) {
	blk := &Block{size: 4}
	_, err := blk.Data()
	if err == nil {
		t.Fatal("Data succeeded with no source")
	}
	if !ErrReference.Has(err) {
		t.Errorf("error %v is not a reference error", err)
	}
}

func TestStorageString(t *testing.T) {
	cases := []struct {
		s    Storage
		want string
	}{
		{Internal, "internal"},
		{Inline, "inline"},
		{External, "external"},
	}
	for _, tc := range cases {
		if got := tc.s.String(); got != tc.want {
			t.Errorf("%d.String() = %q, want %q", tc.s, got, tc.want)
		}
	}
}
