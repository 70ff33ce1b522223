package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmappedField signals a model field with no search field mapping.
	ErrUnmappedField = errors.New("unmapped model field")
	// ErrInvalidSchema signals an invalid document schema definition.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrNoDefaultCluster signals a cluster set without a "default" entry.
	ErrNoDefaultCluster = errors.New(`cluster set has no "default" entry`)
	// ErrNoTable signals a document with no relational table binding.
	ErrNoTable = errors.New("document has no table binding")
	// ErrNoDatabase signals a table binding on a client with no database.
	ErrNoDatabase = errors.New("client has no database connection")
	// ErrNotRegistered signals a sync event for an unregistered model.
	ErrNotRegistered = errors.New("model not registered")
)

// UnmappedFieldError wraps ErrUnmappedField with the offending field name.
type UnmappedFieldError struct {
	Field string
}

func (e *UnmappedFieldError) Error() string {
	return fmt.Sprintf("%s: cannot map field %q to a search field kind", ErrUnmappedField.Error(), e.Field)
}

func (e *UnmappedFieldError) Unwrap() error { return ErrUnmappedField }

// NewUnmappedField creates an unmapped field error.
func NewUnmappedField(field string) error {
	return &UnmappedFieldError{Field: field}
}
