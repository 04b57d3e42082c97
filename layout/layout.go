// Package layout describes the fixed binary layout of packed structs.
//
// A StructType is the runtime counterpart of one struct declaration in a
// resource schema: a declared byte size plus a table of named bit fields.
// It replaces per-struct generated accessor code with one reusable
// descriptor consumed by the generic bit codec.
package layout

import (
	"fmt"

	"github.com/hupe1980/flatarc/bitpack"
)

// Field describes one packed field inside a struct.
type Field struct {
	// Name is the schema-declared field name.
	Name string
	// Offset is the field's bit offset from the start of the struct.
	Offset uint
	// Width is the field's bit width, in [1, 64].
	Width uint
	// Signed selects sign extension on read.
	Signed bool
}

// StructType is the immutable layout descriptor for one packed struct.
type StructType struct {
	name   string
	size   int
	fields []Field
	byName map[string]int
}

// NewStructType builds a validated struct descriptor.
//
// Layout mistakes (zero size, out-of-range widths, fields past the
// declared size, duplicate names) are programming errors and panic.
func NewStructType(name string, size int, fields ...Field) *StructType {
	if size <= 0 {
		panic(fmt.Sprintf("layout: struct %q has non-positive size %d", name, size))
	}
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Width == 0 || f.Width > bitpack.MaxWidth {
			panic(fmt.Sprintf("layout: field %s.%s has width %d, want [1, 64]", name, f.Name, f.Width))
		}
		if f.Offset+f.Width > uint(size)*8 {
			panic(fmt.Sprintf("layout: field %s.%s exceeds struct size of %d bytes", name, f.Name, size))
		}
		if _, dup := byName[f.Name]; dup {
			panic(fmt.Sprintf("layout: duplicate field %s.%s", name, f.Name))
		}
		byName[f.Name] = i
	}
	return &StructType{
		name:   name,
		size:   size,
		fields: append([]Field(nil), fields...),
		byName: byName,
	}
}

// Name returns the schema-declared struct name.
func (t *StructType) Name() string { return t.name }

// Size returns the declared struct size in bytes.
func (t *StructType) Size() int { return t.size }

// Fields returns the field table in declaration order.
func (t *StructType) Fields() []Field { return t.fields }

// Field looks up a field by name.
func (t *StructType) Field(name string) (Field, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Field{}, false
	}
	return t.fields[i], true
}

// MustField looks up a field by name and panics if it does not exist.
// Field names are fixed at descriptor construction, so a miss is a
// programming error.
func (t *StructType) MustField(name string) Field {
	f, ok := t.Field(name)
	if !ok {
		panic(fmt.Sprintf("layout: struct %q has no field %q", t.name, name))
	}
	return f
}
