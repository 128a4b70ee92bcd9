package store

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by a Backend when a merge targets a missing record.
	ErrNotFound = errors.New("record not found")

	ErrInvalidQuery = errors.New("invalid query")
)

// StoreError reports a provider-level fault (transport, permission, quota, invalid query).
type StoreError struct {
	Collection string
	Operation  string
	Cause      error
}

func (err *StoreError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", err.Operation, err.Collection, err.Cause)
}

func (err *StoreError) Unwrap() error { return err.Cause }

// NotFoundError reports a missing record where one is required.
type NotFoundError struct {
	Collection string
	ID         string
}

func (err *NotFoundError) Error() string {
	return fmt.Sprintf("store: %s/%s not found", err.Collection, err.ID)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
