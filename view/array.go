package view

import (
	"fmt"

	"github.com/hupe1980/flatarc/layout"
)

// Array is a read-only zero-copy sequence of fixed-size structs over
// one resource's payload bytes.
//
// The length is the number of whole elements that fit into the buffer;
// trailing padding bytes are tolerated and ignored. Indexing never
// triggers I/O.
type Array struct {
	data []byte
	typ  *layout.StructType
}

// NewArray creates an array view over a resource's payload bytes.
func NewArray(data []byte, typ *layout.StructType) Array {
	return Array{data: data, typ: typ}
}

// Type returns the element layout descriptor.
func (a Array) Type() *layout.StructType { return a.typ }

// Bytes returns the raw payload bytes backing the array.
func (a Array) Bytes() []byte { return a.data }

// Len returns the number of elements.
func (a Array) Len() int { return len(a.data) / a.typ.Size() }

// At returns a view over element i.
func (a Array) At(i int) (Struct, error) {
	if i < 0 || i >= a.Len() {
		return Struct{}, fmt.Errorf("%w: index %d in array of %d %s elements",
			ErrOutOfBounds, i, a.Len(), a.typ.Name())
	}
	return Struct{buf: a.data, off: i * a.typ.Size(), typ: a.typ}, nil
}
