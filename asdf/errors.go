// Package asdf serializes numeric array data embedded in a YAML tree
// document together with binary block payloads, preserving shared
// buffers, foreign byte order, masked values, structured element types,
// and non-contiguous views.
package asdf

import (
	"fmt"
	"strings"

	"github.com/zeebo/errs"

	"github.com/robert-malhotra/go-asdf/internal/block"
	"github.com/robert-malhotra/go-asdf/internal/dtype"
)

var sizeMismatch = errs.Class("size mismatch")

// Error classes. An error belongs to exactly one class; membership is
// checked with Has. I/O errors from block materialization are propagated
// unchanged and belong to none of these.
var (
	// ErrDescriptor covers malformed dtypes, shapes, and strides.
	ErrDescriptor = &dtype.Error

	// ErrReference covers source indices with no registered block.
	ErrReference = &block.ErrReference

	// ErrOverlap covers partial (non-nested) overlap between registered
	// buffer regions. Ambiguous aliasing is never silently resolved.
	ErrOverlap = &block.ErrOverlap

	// ErrSizeMismatch covers views that do not fit within their
	// referenced block at the given offset and strides.
	ErrSizeMismatch = &sizeMismatch
)

// wrapPath prefixes err with the offending tree path. Class errors are
// rebuilt through their own class, because Has only walks class error
// chains and a plain %w wrapper would strip membership. Anything else
// (I/O from materialization) is wrapped with %w and stays matchable via
// errors.Is.
func wrapPath(path string, err error) error {
	if err == nil {
		return nil
	}
	for _, c := range []*errs.Class{ErrDescriptor, ErrReference, ErrOverlap, ErrSizeMismatch} {
		if c.Has(err) {
			msg := strings.TrimPrefix(err.Error(), string(*c)+": ")
			return c.New("%s: %s", path, msg)
		}
	}
	return fmt.Errorf("%s: %w", path, err)
}
