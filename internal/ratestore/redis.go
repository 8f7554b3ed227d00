package ratestore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ Store = (*RedisStore)(nil)

const (
	redisKeyPrefix = "rates:"
	redisBasesKey  = "rates:bases"
)

// RedisStore keeps rate tables in Redis as JSON payloads. Keys carry no
// Redis-side expiry: FetchedAt travels inside the payload and staleness
// stays a read-time predicate, same as MemoryStore. Cache errors must never
// fail a conversion: reads degrade to a miss, writes log and drop.
type RedisStore struct {
	rdb *redis.Client
	log *zap.SugaredLogger
}

// NewRedisStore creates a RedisStore on top of the given client.
func NewRedisStore(rdb *redis.Client, logger *zap.SugaredLogger) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		log: logger,
	}
}

func tableKey(base string) string {
	return redisKeyPrefix + "{" + base + "}"
}

// redisTable is the wire form of a Table.
type redisTable struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Get returns the cached table for base. Any Redis or decode error is
// treated as a cache miss.
func (s *RedisStore) Get(ctx context.Context, base string) (*Table, bool) {
	payload, err := s.rdb.Get(ctx, tableKey(base)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.Warnw("Rate table cache read failed", "base", base, "error", err)
		}
		return nil, false
	}

	var rt redisTable
	if err := json.Unmarshal(payload, &rt); err != nil {
		s.log.Warnw("Rate table cache payload malformed", "base", base, "error", err)
		return nil, false
	}

	return NewTable(rt.Base, rt.Rates, rt.FetchedAt), true
}

// IsFresh reports whether a table for base exists and is younger than ttl.
func (s *RedisStore) IsFresh(ctx context.Context, base string, now time.Time, ttl time.Duration) bool {
	t, ok := s.Get(ctx, base)
	return ok && t.Age(now) < ttl
}

// Put replaces the entry for base and registers the base in the bases set.
// Write failures are logged and dropped.
func (s *RedisStore) Put(ctx context.Context, base string, table *Table) {
	payload, err := json.Marshal(redisTable{
		Base:      table.Base,
		Rates:     table.Rates,
		FetchedAt: table.FetchedAt,
	})
	if err != nil {
		s.log.Warnw("Rate table cache encode failed", "base", base, "error", err)
		return
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, tableKey(base), payload, 0)
	pipe.SAdd(ctx, redisBasesKey, base)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warnw("Rate table cache write failed", "base", base, "error", err)
	}
}

// Bases lists the base currencies currently cached.
func (s *RedisStore) Bases(ctx context.Context) []string {
	bases, err := s.rdb.SMembers(ctx, redisBasesKey).Result()
	if err != nil {
		s.log.Warnw("Rate table cache bases read failed", "error", err)
		return nil
	}
	return bases
}
