package db

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable reports that the store could not be opened or queried.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrSchemaMismatch reports that the store lacks an expected table or column.
	ErrSchemaMismatch = errors.New("schema mismatch")
)

// Error is a storage failure tagged with its kind. errors.Is matches both the
// kind sentinel and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Unavailable(op string, err error) error {
	return &Error{Kind: ErrStorageUnavailable, Op: op, Err: err}
}

func SchemaMismatch(op string, err error) error {
	return &Error{Kind: ErrSchemaMismatch, Op: op, Err: err}
}
