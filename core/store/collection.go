// Package store is the generic record store: typed collections over a document Backend.
package store

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

const (
	DefaultIDField = "id"

	fieldCreatedAt = "createdAt"
	fieldUpdatedAt = "updatedAt"
)

var topLevelFieldRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type options struct {
	timeout  time.Duration
	observer Observer
	idField  string
	stamper  *stamper
}

type Option func(o *options)

// WithTimeout bounds every operation; it fails with *core.TimeoutError past d.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithIDField sets the JSON field the record id is injected into (DefaultIDField by default).
func WithIDField(name string) Option {
	return func(o *options) { o.idField = name }
}

// WithClock replaces the wall clock used to stamp createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.stamper = newStamper(now) }
}

// Collection is a named collection of records of shape T.
// T is (de)serialized through its JSON tags.
type Collection[T any] struct {
	backend Backend
	name    string
	opts    options
}

func NewCollection[T any](backend Backend, name string, opts ...Option) *Collection[T] {
	o := options{idField: DefaultIDField, stamper: processStamper}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T]{backend: backend, name: name, opts: o}
}

func (c *Collection[T]) Name() string { return c.name }

// GetByID returns false, with a nil error, when no record has this id.
func (c *Collection[T]) GetByID(ctx context.Context, id string) (T, bool, error) {
	var (
		rec   T
		doc   Document
		found bool
	)
	err := c.do(ctx, OpGet, id, func(ctx context.Context) error {
		var err error
		doc, found, err = c.backend.Get(ctx, c.name, id)
		return err
	})
	if err != nil || !found {
		return rec, false, err
	}
	if err := Decode(doc, id, c.opts.idField, &rec); err != nil {
		return rec, false, c.storeError(OpGet, err)
	}
	return rec, true, nil
}

// Query returns a snapshot of the records matching filters, in the order the filters ask for.
func (c *Collection[T]) Query(ctx context.Context, filters ...Filter) ([]T, error) {
	q, err := NewQuery(filters...)
	if err != nil {
		return nil, c.storeError(OpQuery, err)
	}

	var records []Record
	err = c.do(ctx, OpQuery, "", func(ctx context.Context) error {
		var err error
		records, err = c.backend.Query(ctx, c.name, q)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(records))
	for _, r := range records {
		var rec T
		if err := Decode(r.Data, r.ID, c.opts.idField, &rec); err != nil {
			return nil, c.storeError(OpQuery, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Create stores data and returns its id. When id is given, any record with that id is replaced;
// otherwise a new id is generated.
func (c *Collection[T]) Create(ctx context.Context, data T, id ...string) (string, error) {
	doc, err := Encode(data, c.opts.idField)
	if err != nil {
		return "", c.storeError(OpCreate, err)
	}

	var recID string
	if len(id) > 0 && id[0] != "" {
		recID = id[0]
	} else {
		recID = NewID()
	}

	now := FormatTime(c.opts.stamper.Stamp())
	if created, ok := doc[fieldCreatedAt].(string); !ok || created == "" || created == FormatTime(time.Time{}) {
		doc[fieldCreatedAt] = now
	}
	doc[fieldUpdatedAt] = now

	err = c.do(ctx, OpCreate, recID, func(ctx context.Context) error {
		return c.backend.Set(ctx, c.name, recID, doc)
	})
	if err != nil {
		return "", err
	}
	return recID, nil
}

// Update merges the top-level fields into an existing record and stamps updatedAt.
// It fails with *NotFoundError when the record does not exist.
func (c *Collection[T]) Update(ctx context.Context, id string, fields Fields) error {
	for k := range fields {
		if !topLevelFieldRegex.MatchString(k) {
			return c.storeError(OpUpdate, errors.Wrapf(ErrInvalidQuery, "invalid field name %q", k))
		}
	}
	doc, err := EncodeFields(fields)
	if err != nil {
		return c.storeError(OpUpdate, err)
	}
	delete(doc, c.opts.idField)
	doc[fieldUpdatedAt] = FormatTime(c.opts.stamper.Stamp())

	return c.do(ctx, OpUpdate, id, func(ctx context.Context) error {
		return c.backend.Merge(ctx, c.name, id, doc)
	})
}

// Delete removes the record; deleting a missing record is not an error.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.do(ctx, OpDelete, id, func(ctx context.Context) error {
		return c.backend.Delete(ctx, c.name, id)
	})
}

func (c *Collection[T]) do(ctx context.Context, op, id string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := core.WithDeadline(ctx, c.opts.timeout, c.name+"."+op, fn)
	if err != nil {
		switch {
		case core.IsTimeout(err):
		case errors.Is(err, ErrNotFound):
			err = &NotFoundError{Collection: c.name, ID: id}
		default:
			err = c.storeError(op, err)
		}
	}
	if c.opts.observer != nil {
		c.opts.observer.ObserveOperation(c.name, op, time.Since(start), err)
	}
	return err
}

func (c *Collection[T]) storeError(op string, cause error) error {
	var se *StoreError
	if errors.As(cause, &se) {
		return cause
	}
	return &StoreError{Collection: c.name, Operation: op, Cause: cause}
}
