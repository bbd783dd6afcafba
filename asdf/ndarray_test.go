package asdf_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-asdf/asdf"
	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

func TestMetadata(t *testing.T) {
	a := asdf.NewFloat64(make([]float64, 24), 2, 3, 4)
	require.Equal(t, []int{2, 3, 4}, a.Shape())
	require.Equal(t, []int{96, 32, 8}, a.Strides())
	require.Equal(t, 3, a.Rank())
	require.Equal(t, 2, a.Len())
	require.Equal(t, 24, a.NumElements())
	require.Equal(t, 8, a.ItemSize())
	require.Equal(t, "ndarray(shape=[2 3 4], dtype=float64)", a.String())
}

func TestDefaultShape(t *testing.T) {
	a := asdf.NewInt64([]int64{1, 2, 3})
	require.Equal(t, []int{3}, a.Shape())

	require.Panics(t, func() {
		asdf.NewInt64([]int64{1, 2, 3}, 2, 2)
	})
}

func TestNewRaw(t *testing.T) {
	dt := dtype.Primitive(dtype.Int16, dtype.Big)
	_, err := asdf.NewRaw(dt, make([]byte, 6), 3)
	require.NoError(t, err)

	_, err = asdf.NewRaw(dt, make([]byte, 5), 3)
	require.Error(t, err)
	require.True(t, asdf.ErrSizeMismatch.Has(err))

	_, err = asdf.NewRaw(dt, nil, -1)
	require.Error(t, err)
	require.True(t, asdf.ErrDescriptor.Has(err))
}

func TestAtSetAt(t *testing.T) {
	a := asdf.NewInt32([]int32{1, 2, 3, 4, 5, 6}, 2, 3)

	v, err := a.At(1, 2)
	require.NoError(t, err)
	require.Equal(t, int32(6), v)

	require.NoError(t, a.SetAt(42, 0, 1))
	v, err = a.At(0, 1)
	require.NoError(t, err)
	require.Equal(t, int32(42), v)

	_, err = a.At(2, 0)
	require.True(t, asdf.ErrDescriptor.Has(err))
	_, err = a.At(0)
	require.True(t, asdf.ErrDescriptor.Has(err))
}

func TestSlice(t *testing.T) {
	a := asdf.NewFloat64([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})

	sub, err := a.Slice(3, -3, 1)
	require.NoError(t, err)
	require.Equal(t, []int{4}, sub.Shape())
	require.Equal(t, int64(24), sub.Offset())
	vals, err := sub.Float64s()
	require.NoError(t, err)
	require.Equal(t, []float64{3, 4, 5, 6}, vals)

	skip, err := a.Slice(0, 10, 2)
	require.NoError(t, err)
	require.Equal(t, []int{5}, skip.Shape())
	require.Equal(t, []int{16}, skip.Strides())
	vals, err = skip.Float64s()
	require.NoError(t, err)
	require.Equal(t, []float64{0, 2, 4, 6, 8}, vals)

	// Views share memory with their base.
	require.NoError(t, a.SetAt(99.0, 4))
	v, err := skip.At(2)
	require.NoError(t, err)
	require.Equal(t, 99.0, v)

	_, err = a.Slice(0, 11, 1)
	require.True(t, asdf.ErrDescriptor.Has(err))
	_, err = a.Slice(0, 10, 0)
	require.True(t, asdf.ErrDescriptor.Has(err))
}

func TestSliceOfSlice(t *testing.T) {
	a := asdf.NewInt64([]int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	inner, err := a.Slice(2, 10, 2) // 2 4 6 8
	require.NoError(t, err)
	outer, err := inner.Slice(1, 4, 2) // 4 8
	require.NoError(t, err)

	vals, err := outer.Int64s()
	require.NoError(t, err)
	require.Equal(t, []int64{4, 8}, vals)
}

func TestMasks(t *testing.T) {
	data := asdf.NewFloat64([]float64{1, 2, 3, 4})

	mask := asdf.NewBool([]bool{false, true, false, false})
	require.NoError(t, data.SetMask(mask))
	require.True(t, data.HasMask())
	got, err := data.Mask()
	require.NoError(t, err)
	bools, err := got.Bools()
	require.NoError(t, err)
	require.Equal(t, []bool{false, true, false, false}, bools)

	// Shape and dtype checks.
	require.Error(t, data.SetMask(asdf.NewBool([]bool{true})))
	require.Error(t, data.SetMask(asdf.NewInt64([]int64{0, 1, 0, 0})))

	// Sentinel masks only apply to floats.
	ints := asdf.NewInt64([]int64{1, 2})
	err = ints.SetSentinelMask()
	require.True(t, asdf.ErrDescriptor.Has(err))

	nan := asdf.NewFloat64([]float64{1, math.NaN(), 3})
	require.NoError(t, nan.SetSentinelMask())
	got, err = nan.Mask()
	require.NoError(t, err)
	bools, err = got.Bools()
	require.NoError(t, err)
	require.Equal(t, []bool{false, true, false}, bools)
}

func TestComplex128s(t *testing.T) {
	a := asdf.NewComplex64([]complex64{1 + 2i, -3i})
	vals, err := a.Complex128s()
	require.NoError(t, err)
	require.Equal(t, []complex128{1 + 2i, -3i}, vals)
}

func TestBytesOfView(t *testing.T) {
	a := asdf.NewUint8([]uint8{0, 1, 2, 3, 4, 5})
	skip, err := a.Slice(0, 6, 2)
	require.NoError(t, err)

	packed, err := skip.Bytes()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 2, 4}, packed)
}

func TestWalk(t *testing.T) {
	tree := map[string]any{
		"b": map[string]any{"inner": int64(1)},
		"a": []any{"x", "y"},
	}
	var paths []string
	err := asdf.Walk(tree, func(path string, v any) error {
		paths = append(paths, path)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"", "/a", "/a[0]", "/a[1]", "/b", "/b/inner"}, paths)
}
