// Package view provides zero-copy read and write access to packed
// structs inside borrowed byte buffers.
//
// A view never owns its buffer. Callers must keep the backing storage
// alive for as long as any view into it is in use; views over
// memory-mapped resources become invalid when the mapping is closed.
package view

import (
	"errors"
	"fmt"

	"github.com/hupe1980/flatarc/bitpack"
	"github.com/hupe1980/flatarc/layout"
)

// ErrOutOfBounds is returned when an index or a view window falls
// outside the backing buffer.
var ErrOutOfBounds = errors.New("view: out of bounds")

// ErrUnknownVariant indicates a multivector payload byte that does not
// match any declared variant. This is fatal data corruption, not a
// recoverable condition.
//
// The concrete error carries the offending tag and payload offset and
// satisfies errors.Is(err, ErrUnknownVariant).
var ErrUnknownVariant = errors.New("view: unknown variant tag")

// Struct is a read-only bounds-checked window over one packed struct:
// a buffer reference, a byte offset, and the struct's layout.
type Struct struct {
	buf []byte
	off int
	typ *layout.StructType
}

// NewStruct creates a view over buf at the given byte offset. The
// window [off, off+typ.Size()) must lie inside the buffer.
func NewStruct(buf []byte, off int, typ *layout.StructType) (Struct, error) {
	if off < 0 || off+typ.Size() > len(buf) {
		return Struct{}, fmt.Errorf("%w: struct %s at offset %d in %d-byte buffer",
			ErrOutOfBounds, typ.Name(), off, len(buf))
	}
	return Struct{buf: buf, off: off, typ: typ}, nil
}

// Type returns the struct's layout descriptor.
func (s Struct) Type() *layout.StructType { return s.typ }

// Bytes returns the raw bytes of the struct window.
// The slice aliases the backing buffer.
func (s Struct) Bytes() []byte { return s.buf[s.off : s.off+s.typ.Size()] }

// Uint reads the named unsigned field. Unknown field names panic, in
// line with MustField: the field table is fixed at construction.
func (s Struct) Uint(name string) uint64 {
	return s.FieldUint(s.typ.MustField(name))
}

// Int reads the named signed field.
func (s Struct) Int(name string) int64 {
	return s.FieldInt(s.typ.MustField(name))
}

// FieldUint reads an unsigned field by descriptor, skipping the name
// lookup. Useful in per-element loops.
func (s Struct) FieldUint(f layout.Field) uint64 {
	return bitpack.Uint(s.buf, uint(s.off)*8+f.Offset, f.Width)
}

// FieldInt reads a signed field by descriptor.
func (s Struct) FieldInt(f layout.Field) int64 {
	return bitpack.Int(s.buf, uint(s.off)*8+f.Offset, f.Width)
}

// MutableStruct is a Struct whose fields can be written in place.
type MutableStruct struct {
	Struct
}

// NewMutableStruct creates a writable view over buf at the given byte
// offset.
func NewMutableStruct(buf []byte, off int, typ *layout.StructType) (MutableStruct, error) {
	s, err := NewStruct(buf, off, typ)
	if err != nil {
		return MutableStruct{}, err
	}
	return MutableStruct{Struct: s}, nil
}

// NewValue allocates a fresh zeroed buffer for one struct and returns a
// writable view over it. The buffer carries the codec's padding tail so
// the value can be serialized as-is.
func NewValue(typ *layout.StructType) MutableStruct {
	buf := make([]byte, typ.Size()+bitpack.PaddingBytes)
	return MutableStruct{Struct: Struct{buf: buf, off: 0, typ: typ}}
}

// SetUint writes the named unsigned field.
func (s MutableStruct) SetUint(name string, v uint64) {
	s.SetFieldUint(s.typ.MustField(name), v)
}

// SetInt writes the named signed field.
func (s MutableStruct) SetInt(name string, v int64) {
	s.SetFieldInt(s.typ.MustField(name), v)
}

// SetFieldUint writes an unsigned field by descriptor.
func (s MutableStruct) SetFieldUint(f layout.Field, v uint64) {
	bitpack.PutUint(s.buf, uint(s.off)*8+f.Offset, f.Width, v)
}

// SetFieldInt writes a signed field by descriptor.
func (s MutableStruct) SetFieldInt(f layout.Field, v int64) {
	bitpack.PutInt(s.buf, uint(s.off)*8+f.Offset, f.Width, v)
}
