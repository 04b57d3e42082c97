package flatarc

import (
	"fmt"

	"github.com/hupe1980/flatarc/layout"
)

// ResourceKind selects the construction and read protocol of one
// archive member.
type ResourceKind int

const (
	// KindStruct is a single fixed-size struct written in one piece.
	KindStruct ResourceKind = iota
	// KindVector is a sequence of fixed-size structs, written buffered
	// or streamed through an external vector.
	KindVector
	// KindMultiVector is a sequence of logical positions holding tagged
	// heterogeneous items, backed by a payload and an index resource.
	KindMultiVector
	// KindRawData is an opaque byte blob.
	KindRawData
)

func (k ResourceKind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindVector:
		return "vector"
	case KindMultiVector:
		return "multivector"
	case KindRawData:
		return "raw_data"
	default:
		return fmt.Sprintf("ResourceKind(%d)", int(k))
	}
}

// ResourceSpec declares one member resource of an archive. It is the
// runtime counterpart of a member declaration in the archive schema.
type ResourceSpec struct {
	// Name is the resource name, unique within the archive.
	Name string
	// Schema is the member's resource schema text.
	Schema string
	// Kind selects the member protocol.
	Kind ResourceKind
	// Element is the struct layout for KindStruct and KindVector.
	Element *layout.StructType
	// Variants is the item type set for KindMultiVector.
	Variants *layout.VariantSet
	// Index describes the index entries for KindMultiVector.
	Index layout.IndexType
	// IndexSchema is the index resource schema for KindMultiVector,
	// conventionally the member schema wrapped in "index(...)".
	IndexSchema string
	// Optional members may be absent when the archive is opened.
	Optional bool
}

// IndexName returns the name of the index resource backing a
// multivector member.
func (r ResourceSpec) IndexName() string {
	return r.Name + "_index"
}

func (r ResourceSpec) validate() error {
	if r.Name == "" {
		return fmt.Errorf("flatarc: resource with empty name")
	}
	switch r.Kind {
	case KindStruct, KindVector:
		if r.Element == nil {
			return fmt.Errorf("flatarc: %s resource %q needs an element layout", r.Kind, r.Name)
		}
	case KindMultiVector:
		if r.Variants == nil {
			return fmt.Errorf("flatarc: multivector resource %q needs a variant set", r.Name)
		}
		if r.Index.Width() == 0 {
			return fmt.Errorf("flatarc: multivector resource %q needs an index type", r.Name)
		}
	case KindRawData:
	default:
		return fmt.Errorf("flatarc: resource %q has unknown kind %d", r.Name, int(r.Kind))
	}
	return nil
}

// ArchiveSpec declares a complete archive: its name, its full schema
// text, and its member resources. One ArchiveSpec drives both the
// builder and the reader.
type ArchiveSpec struct {
	Name      string
	Schema    string
	Resources []ResourceSpec
}

// SignatureName returns the name of the archive's signature resource.
func (s ArchiveSpec) SignatureName() string {
	return s.Name + ".archive"
}

func (s ArchiveSpec) validate() error {
	if s.Name == "" {
		return fmt.Errorf("flatarc: archive with empty name")
	}
	seen := make(map[string]struct{}, len(s.Resources))
	for _, r := range s.Resources {
		if err := r.validate(); err != nil {
			return err
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("flatarc: duplicate resource %q in archive %q", r.Name, s.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return nil
}

// resource looks up a member declaration by name.
func (s ArchiveSpec) resource(name string) (ResourceSpec, bool) {
	for _, r := range s.Resources {
		if r.Name == name {
			return r, true
		}
	}
	return ResourceSpec{}, false
}
