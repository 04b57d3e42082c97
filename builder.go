package flatarc

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/hupe1980/flatarc/storage"
	"github.com/hupe1980/flatarc/vector"
	"github.com/hupe1980/flatarc/view"
)

// Builder constructs one archive on a resource store.
//
// Creating a builder stamps the archive signature; afterwards each
// member resource is written exactly once, either in one piece through
// a Set method or incrementally through a started vector. A Builder is
// single-writer and must be driven from one goroutine.
type Builder struct {
	store  *storage.Store
	spec   ArchiveSpec
	logger *Logger
	built  map[string]bool
}

// NewBuilder creates an archive on the store described by spec.
//
// If the archive's signature resource already exists the store is left
// untouched and an error satisfying errors.Is(err, fs.ErrExist) is
// returned. Otherwise the signature is written immediately, marking
// the storage as claimed before any member data arrives.
func NewBuilder(ctx context.Context, store *storage.Store, spec ArchiveSpec, opts ...Option) (*Builder, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}
	o := applyOptions(opts)

	signature := spec.SignatureName()
	if store.Exists(ctx, signature) {
		return nil, storage.NewIOError(signature,
			fmt.Errorf("archive %q already exists: %w", spec.Name, fs.ErrExist))
	}
	if err := store.Write(ctx, signature, spec.Schema, nil); err != nil {
		return nil, err
	}

	o.logger.Debug("created archive", "archive", spec.Name)

	return &Builder{
		store:  store,
		spec:   spec,
		logger: o.logger,
		built:  make(map[string]bool, len(spec.Resources)),
	}, nil
}

// Name returns the archive name.
func (b *Builder) Name() string { return b.spec.Name }

func (b *Builder) member(name string, kind ResourceKind) (ResourceSpec, error) {
	r, ok := b.spec.resource(name)
	if !ok {
		return ResourceSpec{}, fmt.Errorf("flatarc: archive %q declares no resource %q", b.spec.Name, name)
	}
	if r.Kind != kind {
		return ResourceSpec{}, fmt.Errorf("flatarc: resource %q is a %s, not a %s", name, r.Kind, kind)
	}
	if b.built[name] {
		return ResourceSpec{}, fmt.Errorf("flatarc: resource %q already written", name)
	}
	return r, nil
}

// SetStruct writes a struct member in one piece. The value's layout
// must match the member declaration.
func (b *Builder) SetStruct(ctx context.Context, name string, value view.Struct) error {
	r, err := b.member(name, KindStruct)
	if err != nil {
		return err
	}
	if value.Type().Name() != r.Element.Name() || value.Type().Size() != r.Element.Size() {
		return fmt.Errorf("flatarc: resource %q expects %s, got %s", name, r.Element.Name(), value.Type().Name())
	}
	if err := b.store.Write(ctx, name, r.Schema, value.Bytes()); err != nil {
		return err
	}
	b.built[name] = true
	b.logger.Debug("wrote struct member", "archive", b.spec.Name, "resource", name)
	return nil
}

// SetVector writes a fully materialized vector member in one piece.
// Use StartVector instead when the data is produced incrementally.
func (b *Builder) SetVector(ctx context.Context, name string, a view.Array) error {
	r, err := b.member(name, KindVector)
	if err != nil {
		return err
	}
	if a.Type().Name() != r.Element.Name() || a.Type().Size() != r.Element.Size() {
		return fmt.Errorf("flatarc: resource %q expects %s elements, got %s", name, r.Element.Name(), a.Type().Name())
	}
	if err := b.store.Write(ctx, name, r.Schema, a.Bytes()); err != nil {
		return err
	}
	b.built[name] = true
	b.logger.Debug("wrote vector member", "archive", b.spec.Name, "resource", name, "len", a.Len())
	return nil
}

// SetRawData writes an opaque blob member.
func (b *Builder) SetRawData(ctx context.Context, name string, data []byte) error {
	r, err := b.member(name, KindRawData)
	if err != nil {
		return err
	}
	if err := b.store.Write(ctx, name, r.Schema, data); err != nil {
		return err
	}
	b.built[name] = true
	b.logger.Debug("wrote raw member", "archive", b.spec.Name, "resource", name, "bytes", len(data))
	return nil
}

// StartVector begins incremental construction of a vector member. The
// member counts as written from this point; the data reaches storage
// when the returned vector is closed.
func (b *Builder) StartVector(name string) (*vector.External, error) {
	r, err := b.member(name, KindVector)
	if err != nil {
		return nil, err
	}
	b.built[name] = true
	return vector.NewExternal(b.store, name, r.Schema, r.Element), nil
}

// StartMultiVector begins incremental construction of a multivector
// member, covering both its payload and its index resource.
func (b *Builder) StartMultiVector(name string) (*vector.Multi, error) {
	r, err := b.member(name, KindMultiVector)
	if err != nil {
		return nil, err
	}
	b.built[name] = true
	return vector.NewMulti(b.store, name, r.Schema, r.IndexName(), r.IndexSchema, r.Variants, r.Index), nil
}
