package view

import (
	"fmt"

	"github.com/hupe1980/flatarc/bitpack"
	"github.com/hupe1980/flatarc/layout"
)

// Item is one tagged entry at a multivector logical position.
type Item struct {
	// Tag is the variant discriminant, 0-based in schema order.
	Tag uint8
	// View exposes the variant's payload fields.
	View Struct
}

// MultiArray is the read side of a multivector: a payload resource of
// tagged items delimited by a cumulative-offset index resource.
//
// Position i's items occupy the payload byte range
// [index[i], index[i+1]).
type MultiArray struct {
	payload  []byte
	index    []byte
	variants *layout.VariantSet
	idx      layout.IndexType
}

// NewMultiArray creates a multivector view over the payload and index
// resources of one multivector.
func NewMultiArray(payload, index []byte, variants *layout.VariantSet, idx layout.IndexType) MultiArray {
	return MultiArray{payload: payload, index: index, variants: variants, idx: idx}
}

// Len returns the number of logical positions. The index holds one
// entry per position plus the trailing sentinel.
func (m MultiArray) Len() int {
	entries := len(m.index) / m.idx.Size()
	if entries == 0 {
		return 0
	}
	return entries - 1
}

func (m MultiArray) entry(i int) uint64 {
	return bitpack.Uint(m.index, uint(i*m.idx.Size())*8, m.idx.Width())
}

// At decodes the items at logical position i, in the order they were
// appended. Positions with no items yield an empty slice.
func (m MultiArray) At(i int) ([]Item, error) {
	if i < 0 || i >= m.Len() {
		return nil, fmt.Errorf("%w: position %d in multivector of %d positions",
			ErrOutOfBounds, i, m.Len())
	}

	start := m.entry(i)
	end := m.entry(i + 1)
	if start > end || end > uint64(len(m.payload)) {
		return nil, fmt.Errorf("%w: index range [%d, %d) in %d-byte payload",
			ErrOutOfBounds, start, end, len(m.payload))
	}

	var items []Item
	off := start
	for off < end {
		tag := m.payload[off]
		variant := m.variants.At(tag)
		if variant == nil {
			return nil, fmt.Errorf("%w: tag %d at payload offset %d", ErrUnknownVariant, tag, off)
		}
		off++

		s, err := NewStruct(m.payload, int(off), variant)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{Tag: tag, View: s})
		off += uint64(variant.Size())
	}
	return items, nil
}
