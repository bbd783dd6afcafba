// Package dtype models the binary layout of a single array element.
//
// A Dtype is either a primitive scalar (kind + byte order) or a structured
// record: an ordered list of named fields, each with its own Dtype and an
// optional fixed sub-shape. Structured fields nest arbitrarily and carry
// their byte order independently of their siblings and parent.
package dtype

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/zeebo/errs"
)

// Error is the class for malformed descriptors: inconsistent field
// layouts, unknown primitive kinds, invalid shapes.
var Error = errs.Class("descriptor")

// Kind identifies a primitive element type.
type Kind uint8

// Primitive kinds. Names follow the serialized codes (bool8, int16, ...).
const (
	Invalid Kind = iota
	Bool8
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float16
	Float32
	Float64
	Complex64
	Complex128
)

var kindNames = map[Kind]string{
	Bool8:      "bool8",
	Int8:       "int8",
	Int16:      "int16",
	Int32:      "int32",
	Int64:      "int64",
	Uint8:      "uint8",
	Uint16:     "uint16",
	Uint32:     "uint32",
	Uint64:     "uint64",
	Float16:    "float16",
	Float32:    "float32",
	Float64:    "float64",
	Complex64:  "complex64",
	Complex128: "complex128",
}

var kindSizes = map[Kind]int{
	Bool8:      1,
	Int8:       1,
	Int16:      2,
	Int32:      4,
	Int64:      8,
	Uint8:      1,
	Uint16:     2,
	Uint32:     4,
	Uint64:     8,
	Float16:    2,
	Float32:    4,
	Float64:    8,
	Complex64:  8,
	Complex128: 16,
}

// String returns the serialized name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Size returns the primitive's width in bytes, or 0 for an invalid kind.
func (k Kind) Size() int {
	return kindSizes[k]
}

// ParseKind parses a serialized kind name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return Invalid, Error.New("unknown dtype %q", s)
}

// Order is a declared byte order. Native means "whatever the current
// platform uses" and is distinct from an explicitly pinned order.
type Order uint8

const (
	Native Order = iota
	Little
	Big
)

// String returns the serialized order name; Native serializes as empty
// (the order key is omitted).
func (o Order) String() string {
	switch o {
	case Little:
		return "little"
	case Big:
		return "big"
	default:
		return ""
	}
}

// ParseOrder parses a serialized byte order. The empty string is Native.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "":
		return Native, nil
	case "little":
		return Little, nil
	case "big":
		return Big, nil
	default:
		return Native, Error.New("unknown byteorder %q", s)
	}
}

// ByteOrder returns the concrete encoding order, resolving Native to the
// platform order.
func (o Order) ByteOrder() binary.ByteOrder {
	switch o {
	case Little:
		return binary.LittleEndian
	case Big:
		return binary.BigEndian
	default:
		return binary.NativeEndian
	}
}

// Field is one member of a structured dtype.
type Field struct {
	Name  string
	Type  *Dtype
	Shape []int // fixed per-element sub-shape; nil for a single value
}

// Dtype describes the binary layout of one array element. Exactly one of
// the two forms is active: primitive (Kind set, Fields empty) or
// structured (Fields non-empty, Kind ignored).
type Dtype struct {
	Kind   Kind
	Order  Order
	Fields []Field
}

// Primitive returns a primitive dtype.
func Primitive(k Kind, o Order) *Dtype {
	return &Dtype{Kind: k, Order: o}
}

// NewStructured returns a structured dtype. Fields with empty names are
// assigned positional defaults (f0, f1, ...).
func NewStructured(fields []Field) *Dtype {
	out := make([]Field, len(fields))
	copy(out, fields)
	for i := range out {
		if out[i].Name == "" {
			out[i].Name = fmt.Sprintf("f%d", i)
		}
	}
	return &Dtype{Fields: out}
}

// IsStructured reports whether d is a record type.
func (d *Dtype) IsStructured() bool {
	return len(d.Fields) > 0
}

// ItemSize returns the flattened byte size of one element. The result is
// 0 for invalid descriptors; Validate reports why.
func (d *Dtype) ItemSize() int {
	if !d.IsStructured() {
		return d.Kind.Size()
	}
	total := 0
	for _, f := range d.Fields {
		if f.Type == nil {
			return 0
		}
		n := f.Type.ItemSize()
		for _, dim := range f.Shape {
			if dim < 0 {
				return 0
			}
			n *= dim
		}
		total += n
	}
	return total
}

// Validate checks the descriptor for internal consistency.
func (d *Dtype) Validate() error {
	if !d.IsStructured() {
		if d.Kind.Size() == 0 {
			return Error.New("zero-size primitive %q", d.Kind)
		}
		return nil
	}
	for i, f := range d.Fields {
		if f.Type == nil {
			return Error.New("field %q (index %d) has no dtype", f.Name, i)
		}
		for _, dim := range f.Shape {
			if dim < 0 {
				return Error.New("field %q has negative extent %d", f.Name, dim)
			}
		}
		if err := f.Type.Validate(); err != nil {
			return err
		}
	}
	if d.ItemSize() == 0 {
		return Error.New("structured dtype has zero element size")
	}
	return nil
}

// Equal reports whether two descriptors have identical layout: kind,
// declared order, field names, sub-shapes, and nesting.
func (d *Dtype) Equal(other *Dtype) bool {
	if other == nil {
		return false
	}
	if d.IsStructured() != other.IsStructured() {
		return false
	}
	if !d.IsStructured() {
		return d.Kind == other.Kind && d.Order == other.Order
	}
	if len(d.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range d.Fields {
		g := other.Fields[i]
		if f.Name != g.Name || len(f.Shape) != len(g.Shape) {
			return false
		}
		for j, dim := range f.Shape {
			if dim != g.Shape[j] {
				return false
			}
		}
		if !f.Type.Equal(g.Type) {
			return false
		}
	}
	return true
}

// String renders a compact human-readable form, e.g. "float64" or
// "[MINE int8, f1 float64, arr int32[2]]".
func (d *Dtype) String() string {
	if !d.IsStructured() {
		return d.Kind.String()
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range d.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte(' ')
		sb.WriteString(f.Type.String())
		if len(f.Shape) > 0 {
			fmt.Fprintf(&sb, "%v", f.Shape)
		}
	}
	sb.WriteByte(']')
	return sb.String()
}
