// Package vector provides the write side of archive sequence
// resources: append-only builders that accumulate packed structs in
// memory and flush them to resource storage exactly once.
package vector

import (
	"context"

	"github.com/hupe1980/flatarc/layout"
	"github.com/hupe1980/flatarc/storage"
	"github.com/hupe1980/flatarc/view"
)

// initialCapacity is the first buffer allocation, in elements.
const initialCapacity = 32

// External is a write-only, append-only growable sequence of fixed-size
// structs, streamed into one resource without buffering callers' data
// twice.
//
// Grow returns a writable view over a fresh zeroed element; Close
// flushes the accumulated bytes to storage under the bound name and
// schema. A closed vector must not be used again.
type External struct {
	store  *storage.Store
	name   string
	schema string
	typ    *layout.StructType

	buf    []byte
	n      int
	closed bool
}

// NewExternal creates an external vector bound to one resource name and
// schema.
func NewExternal(store *storage.Store, name, schema string, typ *layout.StructType) *External {
	return &External{
		store:  store,
		name:   name,
		schema: schema,
		typ:    typ,
		buf:    make([]byte, 0, initialCapacity*typ.Size()),
	}
}

// Type returns the element layout descriptor.
func (v *External) Type() *layout.StructType { return v.typ }

// Len returns the number of appended elements.
func (v *External) Len() int { return v.n }

// Grow appends one zero-initialized element and returns a writable view
// over it for the caller to populate. Amortized O(1): the backing
// buffer doubles whenever the next element would overflow it.
func (v *External) Grow() view.MutableStruct {
	if v.closed {
		panic("vector: Grow on a closed external vector")
	}

	size := v.typ.Size()
	need := (v.n + 1) * size
	if need > cap(v.buf) {
		newCap := 2 * cap(v.buf)
		if newCap < need {
			newCap = need
		}
		grown := make([]byte, len(v.buf), newCap)
		copy(grown, v.buf)
		v.buf = grown
	}
	// Spare capacity is never written, so the new element window is
	// already zeroed.
	v.buf = v.buf[:need]

	s, err := view.NewMutableStruct(v.buf, v.n*size, v.typ)
	if err != nil {
		panic(err) // the window was just allocated
	}
	v.n++
	return s
}

// Close writes the accumulated elements to storage under the bound
// resource name. It must be called exactly once; the vector is unusable
// afterwards.
func (v *External) Close(ctx context.Context) error {
	if v.closed {
		panic("vector: Close on a closed external vector")
	}
	v.closed = true

	err := v.store.Write(ctx, v.name, v.schema, v.buf)
	v.buf = nil
	return err
}
