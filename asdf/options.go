package asdf

// WriteOption configures document serialization.
type WriteOption func(*writeOptions)

type writeOptions struct {
	inlineThreshold int
}

func defaultWriteOptions() *writeOptions {
	return &writeOptions{}
}

// WithInlineThreshold makes arrays with at most n elements serialize as
// literal sequences in the tree instead of binary blocks. Zero (the
// default) disables the heuristic. An explicit SetInline always wins.
func WithInlineThreshold(n int) WriteOption {
	return func(o *writeOptions) {
		if n >= 0 {
			o.inlineThreshold = n
		}
	}
}
