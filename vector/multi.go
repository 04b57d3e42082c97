package vector

import (
	"context"
	"fmt"

	"github.com/hupe1980/flatarc/bitpack"
	"github.com/hupe1980/flatarc/layout"
	"github.com/hupe1980/flatarc/storage"
	"github.com/hupe1980/flatarc/view"
)

// Multi is a write-only, append-only sequence of logical positions,
// each holding zero or more heterogeneous tagged items. It is backed by
// two resources: the payload bytes and the cumulative-offset index.
//
// Per logical position the caller adds items with Add and seals the
// position with FinishItem; FinishItem must be called once per
// position, including empty ones. Close flushes payload and index to
// storage exactly once.
type Multi struct {
	store       *storage.Store
	name        string
	schema      string
	indexName   string
	indexSchema string
	variants    *layout.VariantSet
	idx         layout.IndexType

	payload   []byte
	index     []byte
	positions int
	closed    bool
}

// NewMulti creates a multivector bound to its payload and index
// resource names. The index is pre-seeded with the offset of the first
// position, zero.
func NewMulti(store *storage.Store, name, schema, indexName, indexSchema string,
	variants *layout.VariantSet, idx layout.IndexType) *Multi {
	m := &Multi{
		store:       store,
		name:        name,
		schema:      schema,
		indexName:   indexName,
		indexSchema: indexSchema,
		variants:    variants,
		idx:         idx,
	}
	m.appendIndexEntry(0)
	return m
}

// Len returns the number of finished logical positions.
func (m *Multi) Len() int { return m.positions }

// Add appends one item of the named variant to the current logical
// position: the variant's discriminant byte followed by a zeroed
// payload window, returned as a writable view for the caller to fill.
//
// The returned view aliases the growth buffer and is invalidated by
// the next Add; fill it before appending more items.
func (m *Multi) Add(variant string) (view.MutableStruct, error) {
	if m.closed {
		panic("vector: Add on a closed multivector")
	}

	tag, ok := m.variants.Tag(variant)
	if !ok {
		return view.MutableStruct{}, fmt.Errorf("vector: multivector %q has no variant %q", m.name, variant)
	}
	typ := m.variants.At(tag)

	m.payload = append(m.payload, byte(tag))
	off := len(m.payload)
	m.payload = append(m.payload, make([]byte, typ.Size())...)

	s, err := view.NewMutableStruct(m.payload, off, typ)
	if err != nil {
		panic(err) // the window was just appended
	}
	return s, nil
}

// FinishItem seals the current logical position by recording the
// payload length as the next index entry. It fails with a TooBigError
// when the offset no longer fits the index's declared bit width.
func (m *Multi) FinishItem() error {
	if m.closed {
		panic("vector: FinishItem on a closed multivector")
	}

	size := uint64(len(m.payload))
	if size > m.idx.Max() {
		return &storage.TooBigError{Resource: m.name, Size: size}
	}
	m.appendIndexEntry(size)
	m.positions++
	return nil
}

// Close writes the payload and index resources exactly once. The index
// holds positions+1 entries at this point: one per position plus the
// trailing sentinel. The multivector is unusable afterwards.
func (m *Multi) Close(ctx context.Context) error {
	if m.closed {
		panic("vector: Close on a closed multivector")
	}
	m.closed = true

	if err := m.store.Write(ctx, m.name, m.schema, m.payload); err != nil {
		return err
	}
	err := m.store.Write(ctx, m.indexName, m.indexSchema, m.index)
	m.payload = nil
	m.index = nil
	return err
}

func (m *Multi) appendIndexEntry(offset uint64) {
	off := len(m.index)
	m.index = append(m.index, make([]byte, m.idx.Size())...)
	bitpack.PutUint(m.index, uint(off)*8, m.idx.Width(), offset)
}
