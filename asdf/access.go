package asdf

import (
	"math"

	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

// data returns the view's backing bytes, materializing the referenced
// block on first touch. Every view aliasing the same block shares the
// returned slice, so mutations are mutually visible.
func (a *NDArray) data() ([]byte, error) {
	if a.buf != nil {
		return a.buf.data, nil
	}
	if a.blk != nil {
		return a.blk.Data()
	}
	return nil, ErrReference.New("array view has no backing data")
}

// elemOffset computes the byte offset of the element at idx.
func (a *NDArray) elemOffset(idx []int) (int64, error) {
	if len(idx) != len(a.shape) {
		return 0, ErrDescriptor.New("index rank %d does not match array rank %d", len(idx), len(a.shape))
	}
	st := a.effStrides()
	off := a.offset
	for k, i := range idx {
		if i < 0 || i >= a.shape[k] {
			return 0, ErrDescriptor.New("index %d out of range for axis %d (extent %d)", i, k, a.shape[k])
		}
		off += int64(i) * int64(st[k])
	}
	return off, nil
}

// At reads the element at idx. Primitive dtypes return the matching Go
// scalar; structured dtypes return a map of field name to value.
func (a *NDArray) At(idx ...int) (any, error) {
	raw, err := a.data()
	if err != nil {
		return nil, err
	}
	off, err := a.elemOffset(idx)
	if err != nil {
		return nil, err
	}
	size := a.dt.ItemSize()
	elem := raw[off : off+int64(size)]
	if a.dt.IsStructured() {
		return readRecord(a.dt, elem), nil
	}
	return getScalar(a.dt.Kind, a.dt.Order.ByteOrder(), elem), nil
}

// SetAt writes a primitive element at idx. The write lands in the shared
// backing memory and is visible through every aliasing view.
func (a *NDArray) SetAt(v any, idx ...int) error {
	if a.dt.IsStructured() {
		return ErrDescriptor.New("cannot set structured element; write fields through raw bytes")
	}
	raw, err := a.data()
	if err != nil {
		return err
	}
	off, err := a.elemOffset(idx)
	if err != nil {
		return err
	}
	size := a.dt.ItemSize()
	return putScalar(a.dt.Kind, a.dt.Order.ByteOrder(), raw[off:off+int64(size)], v)
}

// each calls fn for every element in logical C order with its byte
// offset into the backing data.
func (a *NDArray) each(fn func(off int64) error) error {
	n := a.NumElements()
	if n == 0 {
		return nil
	}
	st := a.effStrides()
	idx := make([]int, len(a.shape))
	for {
		off := a.offset
		for k, i := range idx {
			off += int64(i) * int64(st[k])
		}
		if err := fn(off); err != nil {
			return err
		}
		// Advance the odometer.
		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < a.shape[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return nil
		}
	}
}

// Elements returns all elements flattened in logical C order.
func (a *NDArray) Elements() ([]any, error) {
	raw, err := a.data()
	if err != nil {
		return nil, err
	}
	size := int64(a.dt.ItemSize())
	bo := a.dt.Order.ByteOrder()
	out := make([]any, 0, a.NumElements())
	err = a.each(func(off int64) error {
		elem := raw[off : off+size]
		if a.dt.IsStructured() {
			out = append(out, readRecord(a.dt, elem))
		} else {
			out = append(out, getScalar(a.dt.Kind, bo, elem))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Float64s returns the elements converted to float64, flattened in
// logical order.
func (a *NDArray) Float64s() ([]float64, error) {
	elems, err := a.Elements()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(elems))
	for i, e := range elems {
		if out[i], err = asFloat64(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Int64s returns the elements converted to int64, flattened in logical
// order.
func (a *NDArray) Int64s() ([]int64, error) {
	elems, err := a.Elements()
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(elems))
	for i, e := range elems {
		if out[i], err = asInt64(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Bools returns the elements of a bool8 array, flattened in logical
// order.
func (a *NDArray) Bools() ([]bool, error) {
	elems, err := a.Elements()
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(elems))
	for i, e := range elems {
		if out[i], err = asBool(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Complex128s returns the elements converted to complex128, flattened
// in logical order.
func (a *NDArray) Complex128s() ([]complex128, error) {
	elems, err := a.Elements()
	if err != nil {
		return nil, err
	}
	out := make([]complex128, len(elems))
	for i, e := range elems {
		if out[i], err = asComplex128(e); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Bytes returns the view's elements packed contiguously in logical C
// order. The result is a copy; it does not alias the backing block.
func (a *NDArray) Bytes() ([]byte, error) {
	raw, err := a.data()
	if err != nil {
		return nil, err
	}
	size := int64(a.dt.ItemSize())
	out := make([]byte, 0, int64(a.NumElements())*size)
	err = a.each(func(off int64) error {
		out = append(out, raw[off:off+size]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Records returns the elements of a structured array as field maps,
// flattened in logical order.
func (a *NDArray) Records() ([]map[string]any, error) {
	if !a.dt.IsStructured() {
		return nil, ErrDescriptor.New("Records requires a structured dtype, got %s", a.dt)
	}
	elems, err := a.Elements()
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(elems))
	for i, e := range elems {
		out[i] = e.(map[string]any)
	}
	return out, nil
}

// Mask returns the boolean mask view, or nil when the array is unmasked.
// An explicit mask is returned as attached; a sentinel mask is derived
// by scanning the data for NaN, which materializes the data block.
func (a *NDArray) Mask() (*NDArray, error) {
	if a.mask != nil {
		return a.mask, nil
	}
	if !a.sentinel {
		return nil, nil
	}
	vals, err := a.Float64s()
	if err != nil {
		return nil, err
	}
	mask := make([]bool, len(vals))
	for i, v := range vals {
		mask[i] = math.IsNaN(v)
	}
	return NewBool(mask, a.shape...), nil
}

// readRecord decodes one structured element. Fields are packed in
// declaration order with no padding; each keeps its own byte order.
// Sub-shaped fields decode to flat []any in C order.
func readRecord(d *dtype.Dtype, b []byte) map[string]any {
	out := make(map[string]any, len(d.Fields))
	pos := 0
	for _, f := range d.Fields {
		count := 1
		for _, dim := range f.Shape {
			count *= dim
		}
		size := f.Type.ItemSize()
		if count == 1 {
			out[f.Name] = readFieldValue(f.Type, b[pos:pos+size])
			pos += size
			continue
		}
		vals := make([]any, count)
		for i := 0; i < count; i++ {
			vals[i] = readFieldValue(f.Type, b[pos:pos+size])
			pos += size
		}
		out[f.Name] = vals
	}
	return out
}

func readFieldValue(d *dtype.Dtype, b []byte) any {
	if d.IsStructured() {
		return readRecord(d, b)
	}
	return getScalar(d.Kind, d.Order.ByteOrder(), b)
}
