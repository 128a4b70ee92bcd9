package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/academia/core/store"
)

var _ store.Backend = (*DB)(nil)

// DB is an in-process document database. Records are deep-copied in and out,
// so callers never share memory with the stored data.
type DB struct {
	mutex       sync.RWMutex
	collections map[string]map[string]store.Document
}

func NewDB() *DB {
	return &DB{collections: make(map[string]map[string]store.Document)}
}

func (db *DB) Get(ctx context.Context, collection, id string) (store.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	doc, ok := db.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return store.Clone(doc), true, nil
}

func (db *DB) Query(ctx context.Context, collection string, q store.Query) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db.mutex.RLock()
	records := make([]store.Record, 0, len(db.collections[collection]))
	for id, doc := range db.collections[collection] {
		records = append(records, store.Record{ID: id, Data: store.Clone(doc)})
	}
	db.mutex.RUnlock()

	return store.Evaluate(records, q), nil
}

func (db *DB) Set(ctx context.Context, collection, id string, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mutex.Lock()
	defer db.mutex.Unlock()

	coll, ok := db.collections[collection]
	if !ok {
		coll = make(map[string]store.Document)
		db.collections[collection] = coll
	}
	coll[id] = store.Clone(doc)
	return nil
}

func (db *DB) Merge(ctx context.Context, collection, id string, fields store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mutex.Lock()
	defer db.mutex.Unlock()

	doc, ok := db.collections[collection][id]
	if !ok {
		return store.ErrNotFound
	}
	for k, v := range store.Clone(fields) {
		doc[k] = v
	}
	return nil
}

func (db *DB) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mutex.Lock()
	defer db.mutex.Unlock()

	delete(db.collections[collection], id)
	return nil
}

// Len returns the number of records held in collection.
func (db *DB) Len(collection string) int {
	db.mutex.RLock()
	defer db.mutex.RUnlock()
	return len(db.collections[collection])
}
