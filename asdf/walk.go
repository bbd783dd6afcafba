package asdf

import (
	"fmt"
	"sort"
)

// WalkFunc is called for every value in a tree with its slash-separated
// path. Returning an error stops the walk.
type WalkFunc func(path string, value any) error

// Walk visits every value in the tree depth-first. Mapping keys are
// visited in sorted order, sequences in index order. Array views are
// leaves: the walk inspects their metadata without loading block data.
func Walk(tree map[string]any, fn WalkFunc) error {
	return walkValue("", tree, fn)
}

func walkValue(path string, v any, fn WalkFunc) error {
	if err := fn(path, v); err != nil {
		return err
	}
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := walkValue(path+"/"+k, t[k], fn); err != nil {
				return err
			}
		}
	case []any:
		for i, item := range t {
			if err := walkValue(fmt.Sprintf("%s[%d]", path, i), item, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
