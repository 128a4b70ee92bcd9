// Package rediscache caches record reads of another store backend in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/store"
)

const DefaultTTL = 5 * time.Minute

// genTTL bounds the life of the per-record generation counters. It must outlast any backend read.
const genTTL = time.Hour

// fillScript caches ARGV[2] under KEYS[1] only if the generation of the record (KEYS[2])
// is still the one read before the backend was hit (ARGV[1]).
var fillScript = redis.NewScript(`
local gen = redis.call('GET', KEYS[2]) or '0'
if gen ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

var _ store.Backend = (*Backend)(nil)

// Backend serves Get from Redis when it can and drops the cached copy on every write.
// Queries always go to the wrapped backend. A Redis failure never fails an operation:
// reads fall back to the wrapped backend and entries expire after the TTL.
//
// Every write bumps a generation counter of the record. A read only fills the cache when the
// generation did not move while it was reading the wrapped backend, so a slow read can not
// put back a copy older than a concurrent write.
type Backend struct {
	next   store.Backend
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
	logger core.Logger
}

type Option func(b *Backend)

func WithTTL(ttl time.Duration) Option {
	return func(b *Backend) {
		if ttl > 0 {
			b.ttl = ttl
		}
	}
}

// WithPrefix namespaces the cache keys, e.g. per environment.
func WithPrefix(prefix string) Option {
	return func(b *Backend) { b.prefix = prefix }
}

func WithLogger(logger core.Logger) Option {
	return func(b *Backend) { b.logger = logger }
}

func New(next store.Backend, client redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{
		next:   next,
		client: client,
		ttl:    DefaultTTL,
		prefix: "records:",
		logger: core.NopLogger{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) key(collection, id string) string {
	return b.prefix + collection + ":" + id
}

func (b *Backend) genKey(collection, id string) string {
	return b.prefix + "gen:" + collection + ":" + id
}

func (b *Backend) Get(ctx context.Context, collection, id string) (store.Document, bool, error) {
	key := b.key(collection, id)

	cached, err := b.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var doc store.Document
		if err := json.Unmarshal(cached, &doc); err == nil {
			return doc, true, nil
		}
		b.logger.Warn("dropping undecodable cache entry", map[string]interface{}{"key": key})
	case !errors.Is(err, redis.Nil):
		b.logger.Warn("reading record cache", err)
	}

	genKey := b.genKey(collection, id)
	gen, genErr := b.client.Get(ctx, genKey).Result()
	if errors.Is(genErr, redis.Nil) {
		gen, genErr = "0", nil
	}

	doc, found, err := b.next.Get(ctx, collection, id)
	if err != nil || !found {
		return doc, found, err
	}

	if genErr != nil {
		b.logger.Warn("reading record cache generation", genErr)
		return doc, true, nil
	}
	if data, err := json.Marshal(doc); err == nil {
		err := fillScript.Run(ctx, b.client, []string{key, genKey}, gen, data, b.ttl.Milliseconds()).Err()
		if err != nil {
			b.logger.Warn("writing record cache", err)
		}
	}
	return doc, true, nil
}

func (b *Backend) Query(ctx context.Context, collection string, q store.Query) ([]store.Record, error) {
	return b.next.Query(ctx, collection, q)
}

func (b *Backend) Set(ctx context.Context, collection, id string, doc store.Document) error {
	if err := b.next.Set(ctx, collection, id, doc); err != nil {
		return err
	}
	b.invalidate(ctx, collection, id)
	return nil
}

func (b *Backend) Merge(ctx context.Context, collection, id string, fields store.Document) error {
	if err := b.next.Merge(ctx, collection, id, fields); err != nil {
		return err
	}
	b.invalidate(ctx, collection, id)
	return nil
}

func (b *Backend) Delete(ctx context.Context, collection, id string) error {
	if err := b.next.Delete(ctx, collection, id); err != nil {
		return err
	}
	b.invalidate(ctx, collection, id)
	return nil
}

func (b *Backend) invalidate(ctx context.Context, collection, id string) {
	genKey := b.genKey(collection, id)
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, genTTL)
		pipe.Del(ctx, b.key(collection, id))
		return nil
	})
	if err != nil {
		b.logger.Warn("invalidating record cache", err)
	}
}
