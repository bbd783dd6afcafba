package asdf

import (
	"fmt"

	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

// The typed constructors pack a Go slice into a fresh owning allocation
// in native byte order. An empty shape defaults to the one-dimensional
// [len(data)]. They panic on a shape/data mismatch, which is always a
// programming error.

// NewFloat64 builds a float64 array.
func NewFloat64(data []float64, shape ...int) *NDArray {
	a := alloc(dtype.Float64, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewFloat32 builds a float32 array.
func NewFloat32(data []float32, shape ...int) *NDArray {
	a := alloc(dtype.Float32, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewInt64 builds an int64 array.
func NewInt64(data []int64, shape ...int) *NDArray {
	a := alloc(dtype.Int64, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewInt32 builds an int32 array.
func NewInt32(data []int32, shape ...int) *NDArray {
	a := alloc(dtype.Int32, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewInt16 builds an int16 array.
func NewInt16(data []int16, shape ...int) *NDArray {
	a := alloc(dtype.Int16, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewInt8 builds an int8 array.
func NewInt8(data []int8, shape ...int) *NDArray {
	a := alloc(dtype.Int8, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewUint64 builds a uint64 array.
func NewUint64(data []uint64, shape ...int) *NDArray {
	a := alloc(dtype.Uint64, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewUint32 builds a uint32 array.
func NewUint32(data []uint32, shape ...int) *NDArray {
	a := alloc(dtype.Uint32, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewUint16 builds a uint16 array.
func NewUint16(data []uint16, shape ...int) *NDArray {
	a := alloc(dtype.Uint16, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewUint8 builds a uint8 array.
func NewUint8(data []uint8, shape ...int) *NDArray {
	a := alloc(dtype.Uint8, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewBool builds a bool8 array.
func NewBool(data []bool, shape ...int) *NDArray {
	a := alloc(dtype.Bool8, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewComplex128 builds a complex128 array.
func NewComplex128(data []complex128, shape ...int) *NDArray {
	a := alloc(dtype.Complex128, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// NewComplex64 builds a complex64 array.
func NewComplex64(data []complex64, shape ...int) *NDArray {
	a := alloc(dtype.Complex64, len(data), shape)
	for i, v := range data {
		mustPut(a, i, v)
	}
	return a
}

// alloc builds the owning allocation for n native-order elements.
func alloc(k dtype.Kind, n int, shape []int) *NDArray {
	if len(shape) == 0 {
		shape = []int{n}
	}
	want := 1
	for _, d := range shape {
		want *= d
	}
	if want != n {
		panic(fmt.Sprintf("asdf: shape %v does not hold %d elements", shape, n))
	}
	dt := dtype.Primitive(k, dtype.Native)
	return newOwned(dt, make([]byte, n*dt.ItemSize()), shape)
}

// mustPut writes the i-th element of a freshly allocated contiguous
// array.
func mustPut(a *NDArray, i int, v any) {
	size := a.dt.ItemSize()
	if err := putScalar(a.dt.Kind, a.dt.Order.ByteOrder(), a.buf.data[i*size:(i+1)*size], v); err != nil {
		panic(fmt.Sprintf("asdf: %v", err))
	}
}
