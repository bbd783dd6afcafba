package asdf

import (
	"fmt"

	"github.com/robert-malhotra/go-asdf/internal/block"
	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

// buffer is one owning allocation. Views that share a buffer alias the
// same memory; the buffer pointer is the identity the block manager
// deduplicates on.
type buffer struct {
	data []byte
}

// NDArray is a view over array data: dtype, shape, byte strides, and a
// byte offset into a backing allocation. The backing is either an owned
// buffer (arrays built in memory, inline data) or a block reference
// resolved through the document's block manager.
//
// Decoded views are lazy: no byte is read until an element is touched.
// All metadata methods answer from the descriptor alone.
type NDArray struct {
	dt      *dtype.Dtype
	shape   []int
	strides []int // bytes per axis; nil means C-contiguous
	offset  int64

	buf *buffer
	blk *block.Block

	inline   bool
	mask     *NDArray
	sentinel bool
}

// newOwned wraps raw bytes in a fresh owning allocation.
func newOwned(dt *dtype.Dtype, raw []byte, shape []int) *NDArray {
	return &NDArray{dt: dt, shape: shape, buf: &buffer{data: raw}}
}

// NewRaw builds an array over pre-packed bytes, which may use any
// declared byte order or a structured dtype. The raw length must equal
// the product of shape times the element size.
func NewRaw(dt *dtype.Dtype, raw []byte, shape ...int) (*NDArray, error) {
	if err := dt.Validate(); err != nil {
		return nil, err
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, ErrDescriptor.New("negative extent %d in shape %v", d, shape)
		}
		n *= d
	}
	if want := n * dt.ItemSize(); want != len(raw) {
		return nil, ErrSizeMismatch.New("%d bytes of data for shape %v of %s (%d bytes needed)",
			len(raw), shape, dt, want)
	}
	return newOwned(dt, raw, shape), nil
}

// Dtype returns the element descriptor.
func (a *NDArray) Dtype() *dtype.Dtype {
	return a.dt
}

// Shape returns a copy of the array's extents.
func (a *NDArray) Shape() []int {
	out := make([]int, len(a.shape))
	copy(out, a.shape)
	return out
}

// Strides returns a copy of the effective byte strides.
func (a *NDArray) Strides() []int {
	st := a.effStrides()
	out := make([]int, len(st))
	copy(out, st)
	return out
}

// Rank returns the number of dimensions.
func (a *NDArray) Rank() int {
	return len(a.shape)
}

// Len returns the extent of the first dimension, or 1 for a scalar view.
func (a *NDArray) Len() int {
	if len(a.shape) == 0 {
		return 1
	}
	return a.shape[0]
}

// NumElements returns the total element count.
func (a *NDArray) NumElements() int {
	n := 1
	for _, d := range a.shape {
		n *= d
	}
	return n
}

// ItemSize returns the per-element byte size.
func (a *NDArray) ItemSize() int {
	return a.dt.ItemSize()
}

// Offset returns the view's byte offset into its backing block or buffer.
func (a *NDArray) Offset() int64 {
	return a.offset
}

// IsInline reports whether the array is flagged for inline placement.
func (a *NDArray) IsInline() bool {
	return a.inline
}

// SetInline flags the array for literal in-tree serialization instead of
// a binary block.
func (a *NDArray) SetInline(inline bool) {
	a.inline = inline
}

// String summarizes the view from metadata only; it never loads data.
func (a *NDArray) String() string {
	return fmt.Sprintf("ndarray(shape=%v, dtype=%s)", a.shape, a.dt)
}

// effStrides returns the view's byte strides, computing the C-contiguous
// default when none are stored.
func (a *NDArray) effStrides() []int {
	if a.strides != nil {
		return a.strides
	}
	return contiguousStrides(a.shape, a.dt.ItemSize())
}

// contiguousStrides returns C-order (row-major) strides.
func contiguousStrides(shape []int, itemSize int) []int {
	st := make([]int, len(shape))
	acc := itemSize
	for k := len(shape) - 1; k >= 0; k-- {
		st[k] = acc
		acc *= shape[k]
	}
	return st
}

// isContiguous reports whether the view matches the C-contiguous default.
func (a *NDArray) isContiguous() bool {
	if a.strides == nil {
		return true
	}
	def := contiguousStrides(a.shape, a.dt.ItemSize())
	for k := range def {
		if a.strides[k] != def[k] {
			return false
		}
	}
	return true
}

// Slice returns a view of the first axis covering [start, stop) with the
// given step. Negative start/stop index from the end. The result shares
// the backing memory: mutations through either view are visible through
// the other.
func (a *NDArray) Slice(start, stop, step int) (*NDArray, error) {
	if len(a.shape) == 0 {
		return nil, ErrDescriptor.New("cannot slice a scalar view")
	}
	if step < 1 {
		return nil, ErrDescriptor.New("slice step must be positive, got %d", step)
	}
	n := a.shape[0]
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 || stop > n || start > stop {
		return nil, ErrDescriptor.New("slice [%d:%d] out of range for length %d", start, stop, n)
	}

	st := a.effStrides()
	shape := a.Shape()
	strides := make([]int, len(st))
	copy(strides, st)

	shape[0] = (stop - start + step - 1) / step
	strides[0] = st[0] * step

	return &NDArray{
		dt:      a.dt,
		shape:   shape,
		strides: strides,
		offset:  a.offset + int64(start)*int64(st[0]),
		buf:     a.buf,
		blk:     a.blk,
	}, nil
}

// SetMask attaches an explicit boolean mask with the same shape.
func (a *NDArray) SetMask(mask *NDArray) error {
	if mask.dt.IsStructured() || mask.dt.Kind != dtype.Bool8 {
		return ErrDescriptor.New("mask dtype must be bool8, got %s", mask.dt)
	}
	if !shapeEqual(a.shape, mask.shape) {
		return ErrDescriptor.New("mask shape %v does not match data shape %v", mask.shape, a.shape)
	}
	a.mask = mask
	a.sentinel = false
	return nil
}

// SetSentinelMask declares that NaN entries in the data stand for masked
// values. Only float dtypes can carry a sentinel mask.
func (a *NDArray) SetSentinelMask() error {
	if !isFloatKind(a.dt) {
		return ErrDescriptor.New("sentinel mask requires a float dtype, got %s", a.dt)
	}
	a.sentinel = true
	a.mask = nil
	return nil
}

// HasMask reports whether the array carries any mask specification.
func (a *NDArray) HasMask() bool {
	return a.mask != nil || a.sentinel
}

func isFloatKind(d *dtype.Dtype) bool {
	if d.IsStructured() {
		return false
	}
	switch d.Kind {
	case dtype.Float16, dtype.Float32, dtype.Float64:
		return true
	}
	return false
}

func shapeEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
