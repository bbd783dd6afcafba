package asdf

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/robert-malhotra/go-asdf/internal/block"
	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

// treeToNode converts a tree value to its YAML node. Mapping keys are
// emitted sorted so output is deterministic.
func (e *encoder) treeToNode(v any, path string) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *NDArray:
		return e.encodeArray(t, path)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			child, err := e.treeToNode(t[k], path+"/"+k)
			if err != nil {
				return nil, err
			}
			m.Content = append(m.Content, strNode(k), child)
		}
		return m, nil
	case []any:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, item := range t {
			child, err := e.treeToNode(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, child)
		}
		return seq, nil
	case string:
		return strNode(t), nil
	case bool:
		return boolNode(t), nil
	case int:
		return intNode(int64(t)), nil
	case int64:
		return intNode(t), nil
	case uint64:
		return uintNode(t), nil
	case float32:
		return floatNode(float64(t)), nil
	case float64:
		return floatNode(t), nil
	default:
		return nil, fmt.Errorf("%s: unsupported tree value type %T", path, v)
	}
}

// nodeToValue converts a parsed YAML node back to a tree value,
// decoding tagged array nodes through the block manager.
func nodeToValue(node *yaml.Node, mgr *block.Manager, path string) (any, error) {
	if node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	if node.Tag == ndarrayTag {
		return decodeArray(node, mgr, path)
	}
	switch node.Kind {
	case yaml.MappingNode:
		out := make(map[string]any, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			val, err := nodeToValue(node.Content[i+1], mgr, path+"/"+key)
			if err != nil {
				return nil, err
			}
			out[key] = val
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for i, child := range node.Content {
			val, err := nodeToValue(child, mgr, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		return scalarValue(node)
	default:
		return nil, fmt.Errorf("%s: unsupported node kind %v", path, node.Kind)
	}
}

// scalarValue converts a scalar node by its resolved tag.
func scalarValue(node *yaml.Node) (any, error) {
	switch node.Tag {
	case "!!null":
		return nil, nil
	case "!!bool":
		return strings.EqualFold(node.Value, "true"), nil
	case "!!int":
		if v, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
			return v, nil
		}
		// Values above MaxInt64 are legal uint64 literals.
		u, err := strconv.ParseUint(node.Value, 10, 64)
		if err != nil {
			return nil, err
		}
		return u, nil
	case "!!float":
		return parseYAMLFloat(node.Value)
	default:
		return node.Value, nil
	}
}

func parseYAMLFloat(s string) (float64, error) {
	switch strings.ToLower(s) {
	case ".nan":
		return math.NaN(), nil
	case ".inf", "+.inf":
		return math.Inf(1), nil
	case "-.inf":
		return math.Inf(-1), nil
	}
	return strconv.ParseFloat(s, 64)
}

// isNaNNode reports a scalar .nan node (the sentinel mask marker).
func isNaNNode(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && strings.EqualFold(node.Value, ".nan")
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func boolNode(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

func intNode(v int64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(v, 10)}
}

func uintNode(v uint64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatUint(v, 10)}
}

// floatNode renders floats with an explicit decimal point so integral
// values stay recognizably float (1 -> "1.0").
func floatNode(v float64) *yaml.Node {
	var s string
	switch {
	case math.IsNaN(v):
		s = ".nan"
	case math.IsInf(v, 1):
		s = ".inf"
	case math.IsInf(v, -1):
		s = "-.inf"
	default:
		s = strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: s}
}

func nanNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: ".nan"}
}

// intSeqNode renders an integer list in flow style ("[10, 2]").
func intSeqNode(vals []int) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, v := range vals {
		seq.Content = append(seq.Content, intNode(int64(v)))
	}
	return seq
}

// scalarLiteral renders one primitive element as a literal scalar node.
func scalarLiteral(d *dtype.Dtype, b []byte) *yaml.Node {
	bo := d.Order.ByteOrder()
	switch d.Kind {
	case dtype.Bool8:
		return boolNode(b[0] != 0)
	case dtype.Int8, dtype.Int16, dtype.Int32, dtype.Int64:
		v, _ := asInt64(getScalar(d.Kind, bo, b))
		return intNode(v)
	case dtype.Uint8, dtype.Uint16, dtype.Uint32, dtype.Uint64:
		v, _ := asUint64(getScalar(d.Kind, bo, b))
		return uintNode(v)
	case dtype.Float16, dtype.Float32, dtype.Float64:
		v, _ := asFloat64(getScalar(d.Kind, bo, b))
		return floatNode(v)
	default:
		c, _ := asComplex128(getScalar(d.Kind, bo, b))
		return strNode(strconv.FormatComplex(c, 'g', -1, 128))
	}
}
