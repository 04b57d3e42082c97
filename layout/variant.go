package layout

import "fmt"

// VariantSet describes the heterogeneous item types of a multivector.
// The discriminant tag of each variant is its 0-based position in the
// declared order, matching the schema.
type VariantSet struct {
	name     string
	variants []*StructType
	byName   map[string]uint8
}

// NewVariantSet builds a validated variant descriptor. A multivector
// payload tag is one byte, so at most 256 variants are supported.
func NewVariantSet(name string, variants ...*StructType) *VariantSet {
	if len(variants) == 0 {
		panic(fmt.Sprintf("layout: variant set %q has no variants", name))
	}
	if len(variants) > 256 {
		panic(fmt.Sprintf("layout: variant set %q exceeds the one-byte tag space", name))
	}
	byName := make(map[string]uint8, len(variants))
	for i, v := range variants {
		if _, dup := byName[v.Name()]; dup {
			panic(fmt.Sprintf("layout: duplicate variant %s.%s", name, v.Name()))
		}
		byName[v.Name()] = uint8(i)
	}
	return &VariantSet{
		name:     name,
		variants: append([]*StructType(nil), variants...),
		byName:   byName,
	}
}

// Name returns the set name.
func (s *VariantSet) Name() string { return s.name }

// Len returns the number of variants.
func (s *VariantSet) Len() int { return len(s.variants) }

// At returns the variant for a discriminant tag, or nil if the tag is
// outside the declared range.
func (s *VariantSet) At(tag uint8) *StructType {
	if int(tag) >= len(s.variants) {
		return nil
	}
	return s.variants[tag]
}

// Tag looks up the discriminant of a variant by struct name.
func (s *VariantSet) Tag(name string) (uint8, bool) {
	tag, ok := s.byName[name]
	return tag, ok
}

// IndexType describes the fixed-width unsigned entries of a multivector
// index resource.
type IndexType struct {
	width uint
}

// NewIndexType builds an index descriptor for entries of the given bit
// width, commonly 32.
func NewIndexType(width uint) IndexType {
	if width == 0 || width > 64 {
		panic(fmt.Sprintf("layout: index width %d, want [1, 64]", width))
	}
	return IndexType{width: width}
}

// Width returns the entry bit width.
func (t IndexType) Width() uint { return t.width }

// Size returns the serialized entry size in bytes.
func (t IndexType) Size() int { return (int(t.width) + 7) / 8 }

// Max returns the largest offset representable by one entry.
func (t IndexType) Max() uint64 {
	if t.width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << t.width) - 1
}
