package flatarc

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/flatarc/storage"
	"github.com/hupe1980/flatarc/view"
)

// Archive is an opened, validated archive. All member resources were
// schema-checked when the archive was opened; accessors are pure view
// construction and never touch storage again.
//
// An Archive is immutable and safe for concurrent use, as long as the
// underlying storage (a memory mapping, for example) stays alive.
type Archive struct {
	spec ArchiveSpec

	structs map[string]view.Struct
	vectors map[string]view.Array
	multis  map[string]view.MultiArray
	raw     map[string][]byte
}

// Open reads and validates the archive described by spec.
//
// The signature resource is checked first: a missing signature yields
// an error satisfying errors.Is(err, storage.ErrMissing), a schema
// mismatch a *storage.WrongSignatureError carrying a textual diff.
// Every declared member is then read and schema-checked eagerly, so a
// corrupt or half-written archive fails here rather than on first
// access. Optional members may be absent.
func Open(ctx context.Context, store *storage.Store, spec ArchiveSpec, opts ...Option) (*Archive, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	if _, err := store.Read(ctx, spec.SignatureName(), spec.Schema); err != nil {
		return nil, err
	}

	a := &Archive{
		spec:    spec,
		structs: make(map[string]view.Struct),
		vectors: make(map[string]view.Array),
		multis:  make(map[string]view.MultiArray),
		raw:     make(map[string][]byte),
	}

	for _, r := range spec.Resources {
		if err := a.loadMember(ctx, store, r); err != nil {
			if r.Optional && errors.Is(err, storage.ErrMissing) {
				continue
			}
			return nil, err
		}
	}

	o.logger.Debug("opened archive", "archive", spec.Name, "resources", len(spec.Resources))
	return a, nil
}

func (a *Archive) loadMember(ctx context.Context, store *storage.Store, r ResourceSpec) error {
	switch r.Kind {
	case KindStruct:
		data, err := store.Read(ctx, r.Name, r.Schema)
		if err != nil {
			return err
		}
		if len(data) < r.Element.Size() {
			return fmt.Errorf("resource %q: %d bytes for %d-byte struct %s: %w",
				r.Name, len(data), r.Element.Size(), r.Element.Name(), storage.ErrUnexpectedDataSize)
		}
		s, err := view.NewStruct(data, 0, r.Element)
		if err != nil {
			return err
		}
		a.structs[r.Name] = s

	case KindVector:
		data, err := store.Read(ctx, r.Name, r.Schema)
		if err != nil {
			return err
		}
		a.vectors[r.Name] = view.NewArray(data, r.Element)

	case KindMultiVector:
		payload, index, err := store.ReadMulti(ctx, r.Name, r.Schema, r.IndexName(), r.IndexSchema)
		if err != nil {
			return err
		}
		a.multis[r.Name] = view.NewMultiArray(payload, index, r.Variants, r.Index)

	case KindRawData:
		data, err := store.Read(ctx, r.Name, r.Schema)
		if err != nil {
			return err
		}
		a.raw[r.Name] = data
	}
	return nil
}

// Name returns the archive name.
func (a *Archive) Name() string { return a.spec.Name }

// Schema returns the full archive schema text.
func (a *Archive) Schema() string { return a.spec.Schema }

func (a *Archive) mustDeclare(name string, kind ResourceKind) {
	r, ok := a.spec.resource(name)
	if !ok {
		panic(fmt.Sprintf("flatarc: archive %q declares no resource %q", a.spec.Name, name))
	}
	if r.Kind != kind {
		panic(fmt.Sprintf("flatarc: resource %q is a %s, not a %s", name, r.Kind, kind))
	}
}

// Struct returns the view over a struct member. The second result is
// false when an optional member is absent. Undeclared names panic.
func (a *Archive) Struct(name string) (view.Struct, bool) {
	a.mustDeclare(name, KindStruct)
	s, ok := a.structs[name]
	return s, ok
}

// Vector returns the array view over a vector member.
func (a *Archive) Vector(name string) (view.Array, bool) {
	a.mustDeclare(name, KindVector)
	v, ok := a.vectors[name]
	return v, ok
}

// MultiVector returns the view over a multivector member.
func (a *Archive) MultiVector(name string) (view.MultiArray, bool) {
	a.mustDeclare(name, KindMultiVector)
	m, ok := a.multis[name]
	return m, ok
}

// RawData returns the payload of a raw data member.
func (a *Archive) RawData(name string) ([]byte, bool) {
	a.mustDeclare(name, KindRawData)
	d, ok := a.raw[name]
	return d, ok
}
