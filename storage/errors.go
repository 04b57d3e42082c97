package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrMissing indicates a resource or archive that is absent entirely.
	ErrMissing = errors.New("storage: resource or archive is missing")

	// ErrMissingData indicates that part of a multi-resource is absent
	// while the rest is present, e.g. a multivector without its index.
	ErrMissingData = errors.New("storage: part of a multi-part resource is missing")

	// ErrUnexpectedDataSize indicates a payload whose byte length does
	// not match the serialized control header.
	ErrUnexpectedDataSize = errors.New("storage: data size does not match control header")
)

// IOError wraps a lower-level I/O failure with the resource name for
// which it occurred.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Resource string
	cause    error
}

// NewIOError wraps err with the resource name.
func NewIOError(resource string, err error) *IOError {
	return &IOError{Resource: resource, cause: err}
}

func (e *IOError) Error() string {
	return fmt.Sprintf("resource %q: %v", e.Resource, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }

// MissingSchemaError indicates that no schema record exists for the
// named resource.
type MissingSchemaError struct {
	Resource string
}

func (e *MissingSchemaError) Error() string {
	return fmt.Sprintf("resource %q: schema is missing", e.Resource)
}

// UTF8Error indicates that a stored schema is not valid UTF-8 text.
type UTF8Error struct {
	Resource string
}

func (e *UTF8Error) Error() string {
	return fmt.Sprintf("resource %q: schema is not valid UTF-8", e.Resource)
}

// WrongSignatureError indicates that the stored schema differs
// structurally from the expected schema. Diff holds a unified diff from
// the stored to the expected text.
type WrongSignatureError struct {
	Resource string
	Diff     string
}

func (e *WrongSignatureError) Error() string {
	return fmt.Sprintf("resource %q: stored schema does not match expected schema\n%s", e.Resource, e.Diff)
}

// TooBigError indicates a value that exceeds the bit-width budget of an
// index or reference field.
type TooBigError struct {
	Resource string
	Size     uint64
}

func (e *TooBigError) Error() string {
	return fmt.Sprintf("resource %q: size %d exceeds the declared bit width", e.Resource, e.Size)
}
