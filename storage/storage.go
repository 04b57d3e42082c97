// Package storage defines the named-resource storage contract and the
// schema-checked read/write protocol on top of it.
//
// A Backend is a minimal named-blob store. A Store layers the resource
// protocol over it: every resource is persisted as an 8-byte
// little-endian size header, the payload, and an 8-byte zero pad,
// accompanied by a sidecar schema blob named "<name>.schema". Reads
// verify the stored schema against the expected one and the payload
// length against the control header before handing out bytes.
package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"unicode/utf8"

	"github.com/hupe1980/flatarc/bitpack"
)

// ErrNotFound is returned by a Backend when a blob does not exist.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// SchemaSuffix is appended to a resource name to form the name of its
// sidecar schema blob.
const SchemaSuffix = ".schema"

// sizeHeaderBytes is the length of the control header preceding every
// payload.
const sizeHeaderBytes = 8

// Backend is the minimal named-blob contract a Store builds on.
//
// A name is either absent or bound to exactly one current blob. Whether
// rewriting an existing name overwrites or errors is backend-defined;
// the archive layer never rewrites a name.
type Backend interface {
	// Exists reports whether a blob exists under name.
	Exists(ctx context.Context, name string) bool
	// Read returns the complete blob stored under name.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write persists data under name.
	Write(ctx context.Context, name string, data []byte) error
}

// Store implements the schema-checked resource protocol over a Backend.
//
// A Store is a single-writer handle: writes are strictly ordered by the
// caller, and a runtime check turns overlapping writers into a fail-fast
// panic instead of silent corruption. Reads carry no such restriction.
type Store struct {
	backend Backend
	logger  *slog.Logger
	writing atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for debug-level read/write traces.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a resource store over the given backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists reports whether a resource is present under name, either as a
// payload blob or as a schema record.
func (s *Store) Exists(ctx context.Context, name string) bool {
	return s.backend.Exists(ctx, name) || s.backend.Exists(ctx, name+SchemaSuffix)
}

// Read returns the payload of the named resource after verifying its
// stored schema against expectedSchema and its length against the
// serialized control header.
func (s *Store) Read(ctx context.Context, name, expectedSchema string) ([]byte, error) {
	payloadExists := s.backend.Exists(ctx, name)
	schemaExists := s.backend.Exists(ctx, name+SchemaSuffix)

	switch {
	case !payloadExists && !schemaExists:
		return nil, fmt.Errorf("resource %q: %w", name, ErrMissing)
	case !schemaExists:
		return nil, &MissingSchemaError{Resource: name}
	case !payloadExists:
		return nil, fmt.Errorf("resource %q: %w", name, ErrMissingData)
	}

	storedSchema, err := s.backend.Read(ctx, name+SchemaSuffix)
	if err != nil {
		return nil, NewIOError(name, err)
	}
	if !utf8.Valid(storedSchema) {
		return nil, &UTF8Error{Resource: name}
	}
	if !schemasEqual(string(storedSchema), expectedSchema) {
		return nil, &WrongSignatureError{
			Resource: name,
			Diff:     schemaDiff(string(storedSchema), expectedSchema),
		}
	}

	raw, err := s.backend.Read(ctx, name)
	if err != nil {
		return nil, NewIOError(name, err)
	}
	payload, err := unframe(raw)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", name, err)
	}

	s.logger.Debug("read resource", "name", name, "bytes", len(payload))
	return payload, nil
}

// ReadMulti reads the payload and index resources of a multivector.
// Absence of both yields ErrMissing; absence of exactly one yields
// ErrMissingData.
func (s *Store) ReadMulti(ctx context.Context, name, schema, indexName, indexSchema string) (payload, index []byte, err error) {
	payloadExists := s.Exists(ctx, name)
	indexExists := s.Exists(ctx, indexName)

	switch {
	case !payloadExists && !indexExists:
		return nil, nil, fmt.Errorf("resource %q: %w", name, ErrMissing)
	case payloadExists != indexExists:
		return nil, nil, fmt.Errorf("resource %q: %w", name, ErrMissingData)
	}

	if payload, err = s.Read(ctx, name, schema); err != nil {
		return nil, nil, err
	}
	if index, err = s.Read(ctx, indexName, indexSchema); err != nil {
		return nil, nil, err
	}
	return payload, index, nil
}

// Write persists schema and payload together under the given name.
func (s *Store) Write(ctx context.Context, name, schema string, data []byte) error {
	if !s.writing.CompareAndSwap(false, true) {
		panic("storage: concurrent write through a single-writer store")
	}
	defer s.writing.Store(false)

	if err := s.backend.Write(ctx, name, frame(data)); err != nil {
		return NewIOError(name, err)
	}
	if err := s.backend.Write(ctx, name+SchemaSuffix, []byte(schema)); err != nil {
		return NewIOError(name+SchemaSuffix, err)
	}

	s.logger.Debug("wrote resource", "name", name, "bytes", len(data))
	return nil
}

// frame serializes a payload as size header + data + padding tail.
func frame(data []byte) []byte {
	blob := make([]byte, sizeHeaderBytes+len(data)+bitpack.PaddingBytes)
	binary.LittleEndian.PutUint64(blob, uint64(len(data)))
	copy(blob[sizeHeaderBytes:], data)
	return blob
}

// unframe validates the control header and strips header and padding.
func unframe(raw []byte) ([]byte, error) {
	if len(raw) < sizeHeaderBytes {
		return nil, ErrUnexpectedDataSize
	}
	size := binary.LittleEndian.Uint64(raw)
	if uint64(len(raw)-sizeHeaderBytes) < size {
		return nil, ErrUnexpectedDataSize
	}
	return raw[sizeHeaderBytes : sizeHeaderBytes+size], nil
}
