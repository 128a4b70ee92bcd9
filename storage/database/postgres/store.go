// Package pgstore keeps records in a Postgres JSONB table:
//
//	records(collection TEXT, id TEXT, data JSONB, PRIMARY KEY (collection, id))
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/store"
)

const (
	getQuery    = `SELECT data FROM records WHERE collection = $1 AND id = $2`
	upsertQuery = `INSERT INTO records (collection, id, data) VALUES ($1, $2, $3::jsonb)
ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`
	mergeQuery  = `UPDATE records SET data = data || $3::jsonb WHERE collection = $1 AND id = $2`
	deleteQuery = `DELETE FROM records WHERE collection = $1 AND id = $2`
)

var _ store.Backend = (*Store)(nil)

type Store struct {
	db *sqlx.DB
}

// New wraps an open postgres connection pool. The records table is created by the migrations.
func New(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

type row struct {
	ID   string         `db:"id"`
	Data types.JSONText `db:"data"`
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, bool, error) {
	var data types.JSONText
	if err := s.db.GetContext(ctx, &data, getQuery, collection, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "selecting record")
	}
	doc, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Record, error) {
	query, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	defer func() { _ = rows.Close() }()

	var records []store.Record
	for rows.Next() {
		var r row
		if err := rows.StructScan(&r); err != nil {
			return nil, errors.Wrap(err, "scanning record")
		}
		doc, err := decode(r.Data)
		if err != nil {
			return nil, err
		}
		records = append(records, store.Record{ID: r.ID, Data: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return records, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc store.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	if _, err := s.db.ExecContext(ctx, upsertQuery, collection, id, string(data)); err != nil {
		return errors.Wrap(err, "upserting record")
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, id string, fields store.Document) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "encoding fields")
	}
	res, err := s.db.ExecContext(ctx, mergeQuery, collection, id, string(data))
	if err != nil {
		return errors.Wrap(err, "updating record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "updating record")
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx, deleteQuery, collection, id); err != nil {
		return errors.Wrap(err, "deleting record")
	}
	return nil
}

func decode(data types.JSONText) (store.Document, error) {
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decoding record")
	}
	return doc, nil
}
