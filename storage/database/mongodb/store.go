// Package mongostore keeps each record collection in a MongoDB collection of the same name.
// The record id is the document _id.
package mongostore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/trezcool/academia/core/store"
)

const idKey = "_id"

var _ store.Backend = (*Store)(nil)

type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

// Connect opens a client for uri and pings it.
func Connect(ctx context.Context, uri, dbName string) (*Store, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, errors.Wrap(err, "pinging mongodb")
	}
	return New(client.Database(dbName)), client.Disconnect, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, bool, error) {
	raw, err := s.db.Collection(collection).FindOne(ctx, bson.D{{Key: idKey, Value: id}}).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, errors.Wrap(err, "finding document")
	}
	_, doc, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *Store) Query(ctx context.Context, collection string, q store.Query) ([]store.Record, error) {
	cur, err := s.db.Collection(collection).Find(ctx, BuildFilter(q), FindOptions(q))
	if err != nil {
		return nil, errors.Wrap(err, "finding documents")
	}
	defer func() { _ = cur.Close(ctx) }()

	var records []store.Record
	for cur.Next(ctx) {
		id, doc, err := decode(cur.Current)
		if err != nil {
			return nil, err
		}
		records = append(records, store.Record{ID: id, Data: doc})
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating documents")
	}
	return records, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc store.Document) error {
	_, err := s.db.Collection(collection).ReplaceOne(
		ctx,
		bson.D{{Key: idKey, Value: id}},
		map[string]interface{}(doc),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errors.Wrap(err, "replacing document")
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, id string, fields store.Document) error {
	res, err := s.db.Collection(collection).UpdateOne(
		ctx,
		bson.D{{Key: idKey, Value: id}},
		bson.D{{Key: "$set", Value: map[string]interface{}(fields)}},
	)
	if err != nil {
		return errors.Wrap(err, "updating document")
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: idKey, Value: id}}); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return nil
}

// decode goes through relaxed extended JSON so documents come back with the same
// shapes (float64 numbers, []interface{}, nested maps) as from the other backends.
func decode(raw bson.Raw) (string, store.Document, error) {
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return "", nil, errors.Wrap(err, "decoding document")
	}
	var doc store.Document
	if err := json.Unmarshal(ext, &doc); err != nil {
		return "", nil, errors.Wrap(err, "decoding document")
	}

	id, _ := doc[idKey].(string)
	delete(doc, idKey)
	return id, doc, nil
}
