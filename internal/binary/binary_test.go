package binary

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	buf := &Buffer{}
	w := NewWriter(buf, binary.BigEndian)

	if err := w.WriteBytes([]byte("\xd3BLK")); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}
	if err := w.WriteUint16(20); err != nil {
		t.Fatalf("WriteUint16: %v", err)
	}
	if err := w.WriteUint32(0xdeadbeef); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	if err := w.WriteUint64(1 << 40); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}
	if err := w.WriteZeros(4); err != nil {
		t.Fatalf("WriteZeros: %v", err)
	}
	if w.Pos() != 4+2+4+8+4 {
		t.Fatalf("Pos() = %d, want %d", w.Pos(), 4+2+4+8+4)
	}
	if buf.Len() != int(w.Pos()) {
		t.Fatalf("Buffer.Len() = %d, want %d", buf.Len(), w.Pos())
	}

	r := NewReader(buf, binary.BigEndian)
	magic, err := r.Peek(4)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if string(magic) != "\xd3BLK" {
		t.Errorf("Peek = %q, want magic", magic)
	}
	if r.Pos() != 0 {
		t.Error("Peek advanced the position")
	}
	r.Skip(4)

	if v, err := r.ReadUint16(); err != nil || v != 20 {
		t.Errorf("ReadUint16 = %d, %v, want 20", v, err)
	}
	if v, err := r.ReadUint32(); err != nil || v != 0xdeadbeef {
		t.Errorf("ReadUint32 = %#x, %v, want 0xdeadbeef", v, err)
	}
	if v, err := r.ReadUint64(); err != nil || v != 1<<40 {
		t.Errorf("ReadUint64 = %d, %v, want %d", v, err, uint64(1)<<40)
	}
	zeros, err := r.ReadBytes(4)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(zeros, make([]byte, 4)) {
		t.Errorf("ReadBytes = %v, want zeros", zeros)
	}
}

func TestReaderAt(t *testing.T) {
	buf := &Buffer{}
	w := NewWriter(buf, binary.LittleEndian)
	if err := w.WriteUint32(1); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint32(2); err != nil {
		t.Fatal(err)
	}

	r := NewReader(buf, binary.LittleEndian)
	second := r.At(4)
	if v, err := second.ReadUint32(); err != nil || v != 2 {
		t.Errorf("At(4).ReadUint32 = %d, %v, want 2", v, err)
	}
	// The original reader's position is unaffected.
	if v, err := r.ReadUint32(); err != nil || v != 1 {
		t.Errorf("ReadUint32 = %d, %v, want 1", v, err)
	}
}

func TestWriterAtBackpatch(t *testing.T) {
	buf := &Buffer{}
	w := NewWriter(buf, binary.BigEndian)
	if err := w.WriteUint32(0); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteUint32(7); err != nil {
		t.Fatal(err)
	}
	if err := w.At(0).WriteUint32(9); err != nil {
		t.Fatal(err)
	}

	r := NewReader(buf, binary.BigEndian)
	if v, _ := r.ReadUint32(); v != 9 {
		t.Errorf("backpatched value = %d, want 9", v)
	}
	if v, _ := r.ReadUint32(); v != 7 {
		t.Errorf("second value = %d, want 7", v)
	}
}

func TestBufferReadAt(t *testing.T) {
	buf := &Buffer{}
	if _, err := buf.WriteAt([]byte("hello"), 2); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 7 {
		t.Fatalf("Len() = %d, want 7", buf.Len())
	}

	p := make([]byte, 5)
	if _, err := buf.ReadAt(p, 2); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(p) != "hello" {
		t.Errorf("ReadAt = %q, want %q", p, "hello")
	}

	if _, err := buf.ReadAt(p, 7); !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt past end = %v, want io.EOF", err)
	}
	if _, err := buf.ReadAt(p, 5); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("short ReadAt = %v, want io.ErrUnexpectedEOF", err)
	}
}
