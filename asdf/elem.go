package asdf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

// getScalar decodes one primitive element from b using the given order.
// Integer kinds return their exact Go width; float16 returns float32.
func getScalar(k dtype.Kind, bo binary.ByteOrder, b []byte) any {
	switch k {
	case dtype.Bool8:
		return b[0] != 0
	case dtype.Int8:
		return int8(b[0])
	case dtype.Uint8:
		return b[0]
	case dtype.Int16:
		return int16(bo.Uint16(b))
	case dtype.Uint16:
		return bo.Uint16(b)
	case dtype.Int32:
		return int32(bo.Uint32(b))
	case dtype.Uint32:
		return bo.Uint32(b)
	case dtype.Int64:
		return int64(bo.Uint64(b))
	case dtype.Uint64:
		return bo.Uint64(b)
	case dtype.Float16:
		return halfToFloat(bo.Uint16(b))
	case dtype.Float32:
		return math.Float32frombits(bo.Uint32(b))
	case dtype.Float64:
		return math.Float64frombits(bo.Uint64(b))
	case dtype.Complex64:
		re := math.Float32frombits(bo.Uint32(b))
		im := math.Float32frombits(bo.Uint32(b[4:]))
		return complex(re, im)
	case dtype.Complex128:
		re := math.Float64frombits(bo.Uint64(b))
		im := math.Float64frombits(bo.Uint64(b[8:]))
		return complex(re, im)
	default:
		return nil
	}
}

// putScalar encodes v into b using the given order, coercing v from any
// Go numeric, bool, or complex type.
func putScalar(k dtype.Kind, bo binary.ByteOrder, b []byte, v any) error {
	switch k {
	case dtype.Bool8:
		t, err := asBool(v)
		if err != nil {
			return err
		}
		if t {
			b[0] = 1
		} else {
			b[0] = 0
		}
	case dtype.Int8, dtype.Int16, dtype.Int32, dtype.Int64:
		n, err := asInt64(v)
		if err != nil {
			return err
		}
		switch k {
		case dtype.Int8:
			b[0] = byte(n)
		case dtype.Int16:
			bo.PutUint16(b, uint16(n))
		case dtype.Int32:
			bo.PutUint32(b, uint32(n))
		case dtype.Int64:
			bo.PutUint64(b, uint64(n))
		}
	case dtype.Uint8, dtype.Uint16, dtype.Uint32, dtype.Uint64:
		n, err := asUint64(v)
		if err != nil {
			return err
		}
		switch k {
		case dtype.Uint8:
			b[0] = byte(n)
		case dtype.Uint16:
			bo.PutUint16(b, uint16(n))
		case dtype.Uint32:
			bo.PutUint32(b, uint32(n))
		case dtype.Uint64:
			bo.PutUint64(b, n)
		}
	case dtype.Float16, dtype.Float32, dtype.Float64:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		switch k {
		case dtype.Float16:
			bo.PutUint16(b, floatToHalf(float32(f)))
		case dtype.Float32:
			bo.PutUint32(b, math.Float32bits(float32(f)))
		case dtype.Float64:
			bo.PutUint64(b, math.Float64bits(f))
		}
	case dtype.Complex64, dtype.Complex128:
		c, err := asComplex128(v)
		if err != nil {
			return err
		}
		if k == dtype.Complex64 {
			bo.PutUint32(b, math.Float32bits(float32(real(c))))
			bo.PutUint32(b[4:], math.Float32bits(float32(imag(c))))
		} else {
			bo.PutUint64(b, math.Float64bits(real(c)))
			bo.PutUint64(b[8:], math.Float64bits(imag(c)))
		}
	default:
		return ErrDescriptor.New("cannot store into dtype %q", k)
	}
	return nil
}

func asBool(v any) (bool, error) {
	if t, ok := v.(bool); ok {
		return t, nil
	}
	return false, fmt.Errorf("cannot convert %T to bool", v)
}

func asInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case float32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	}
	return 0, fmt.Errorf("cannot convert %T to int64", v)
}

func asUint64(v any) (uint64, error) {
	switch t := v.(type) {
	case int:
		return uint64(t), nil
	case int8:
		return uint64(t), nil
	case int16:
		return uint64(t), nil
	case int32:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case uint8:
		return uint64(t), nil
	case uint16:
		return uint64(t), nil
	case uint32:
		return uint64(t), nil
	case uint64:
		return t, nil
	case float32:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	}
	return 0, fmt.Errorf("cannot convert %T to uint64", v)
}

func asFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	}
	return 0, fmt.Errorf("cannot convert %T to float64", v)
}

func asComplex128(v any) (complex128, error) {
	switch t := v.(type) {
	case complex64:
		return complex128(t), nil
	case complex128:
		return t, nil
	}
	if f, err := asFloat64(v); err == nil {
		return complex(f, 0), nil
	}
	return 0, fmt.Errorf("cannot convert %T to complex128", v)
}

// halfToFloat converts an IEEE 754 binary16 bit pattern to float32.
func halfToFloat(h uint16) float32 {
	sign := uint32(h>>15) & 1
	exp := uint32(h>>10) & 0x1f
	frac := uint32(h) & 0x3ff

	var bits uint32
	switch {
	case exp == 0 && frac == 0:
		bits = sign << 31
	case exp == 0:
		// Subnormal: normalize into float32 range.
		e := uint32(127 - 15 + 1)
		for frac&0x400 == 0 {
			frac <<= 1
			e--
		}
		frac &= 0x3ff
		bits = sign<<31 | e<<23 | frac<<13
	case exp == 0x1f:
		bits = sign<<31 | 0xff<<23 | frac<<13
	default:
		bits = sign<<31 | (exp-15+127)<<23 | frac<<13
	}
	return math.Float32frombits(bits)
}

// floatToHalf converts a float32 to the nearest IEEE 754 binary16 bit
// pattern (round to nearest even).
func floatToHalf(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23&0xff) - 127 + 15
	frac := bits & 0x7fffff

	switch {
	case int32(bits>>23&0xff) == 0xff:
		// Inf/NaN
		if frac != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		frac |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(frac >> shift)
		if frac>>(shift-1)&1 != 0 {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(frac>>13)
		if frac&0x1000 != 0 {
			half++
		}
		return half
	}
}
