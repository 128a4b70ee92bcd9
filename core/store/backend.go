package store

import (
	"context"
	"time"
)

type (
	// Backend is a document database holding named collections of records.
	Backend interface {
		// Get returns false, without error, when the record does not exist.
		Get(ctx context.Context, collection, id string) (Document, bool, error)
		Query(ctx context.Context, collection string, q Query) ([]Record, error)
		// Set creates or replaces the record.
		Set(ctx context.Context, collection, id string, doc Document) error
		// Merge sets the top-level fields of an existing record, or returns ErrNotFound.
		Merge(ctx context.Context, collection, id string, fields Document) error
		// Delete succeeds whether or not the record exists.
		Delete(ctx context.Context, collection, id string) error
	}

	// Observer is notified of every collection operation once it completes.
	Observer interface {
		ObserveOperation(collection, operation string, took time.Duration, err error)
	}
)

// operation names reported to observers and in errors
const (
	OpGet    = "get"
	OpQuery  = "query"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)
