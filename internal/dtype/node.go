package dtype

import (
	"strconv"

	"gopkg.in/yaml.v3"
)

// ToNode returns the YAML representation of a descriptor for the "dtype"
// key of an ndarray node. Primitives become a bare scalar naming the
// kind; the byte order travels in a sibling "byteorder" key owned by the
// caller. Structured descriptors become a sequence of field mappings,
// each carrying its own byteorder, recursively.
func ToNode(d *Dtype) *yaml.Node {
	if !d.IsStructured() {
		return strNode(d.Kind.String())
	}

	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, f := range d.Fields {
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		m.Content = append(m.Content, strNode("name"), strNode(f.Name))
		m.Content = append(m.Content, strNode("dtype"), ToNode(f.Type))
		if !f.Type.IsStructured() && f.Type.Order != Native {
			m.Content = append(m.Content, strNode("byteorder"), strNode(f.Type.Order.String()))
		}
		if len(f.Shape) > 0 {
			shape := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
			for _, dim := range f.Shape {
				shape.Content = append(shape.Content, intNode(dim))
			}
			m.Content = append(m.Content, strNode("shape"), shape)
		}
		seq.Content = append(seq.Content, m)
	}
	return seq
}

// FromNode parses a "dtype" node. byteorder is the value of the sibling
// "byteorder" key (empty when omitted) and applies only to primitives;
// structured fields carry their orders in their own mappings.
func FromNode(node *yaml.Node, byteorder string) (*Dtype, error) {
	if node == nil {
		return nil, Error.New("missing dtype")
	}
	switch node.Kind {
	case yaml.ScalarNode:
		k, err := ParseKind(node.Value)
		if err != nil {
			return nil, err
		}
		o, err := ParseOrder(byteorder)
		if err != nil {
			return nil, err
		}
		d := Primitive(k, o)
		if err := d.Validate(); err != nil {
			return nil, err
		}
		return d, nil

	case yaml.SequenceNode:
		if len(node.Content) == 0 {
			return nil, Error.New("structured dtype has no fields")
		}
		fields := make([]Field, 0, len(node.Content))
		for i, fn := range node.Content {
			f, err := parseField(fn, i)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		d := NewStructured(fields)
		if err := d.Validate(); err != nil {
			return nil, err
		}
		return d, nil

	default:
		return nil, Error.New("dtype node must be a scalar or a sequence, got %v", node.Kind)
	}
}

// parseField parses one {name, dtype, byteorder?, shape?} field mapping.
func parseField(node *yaml.Node, index int) (Field, error) {
	if node.Kind != yaml.MappingNode {
		return Field{}, Error.New("dtype field %d is not a mapping", index)
	}

	var name, order string
	var dtypeNode *yaml.Node
	var shape []int

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "name":
			name = val.Value
		case "byteorder":
			order = val.Value
		case "dtype":
			dtypeNode = val
		case "shape":
			if val.Kind != yaml.SequenceNode {
				return Field{}, Error.New("field %d shape is not a sequence", index)
			}
			for _, dn := range val.Content {
				dim, err := strconv.Atoi(dn.Value)
				if err != nil {
					return Field{}, Error.New("field %d shape entry %q is not an integer", index, dn.Value)
				}
				shape = append(shape, dim)
			}
		}
	}

	ft, err := FromNode(dtypeNode, order)
	if err != nil {
		return Field{}, err
	}
	return Field{Name: name, Type: ft, Shape: shape}, nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}
