package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "leadfinder:cache:"

// touchScript bumps the counters only when the entry still exists so that a
// concurrent Expire never resurrects a half-written hash.
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HINCRBY", KEYS[1], "hit_count", 1)
redis.call("HSET", KEYS[1], "last_access_at", ARGV[1])
return 1
`)

// RedisStore keeps each entry in its own hash, so the server and several
// CLI hosts can share one cache.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(addr, password string, db int) *RedisStore {
	return NewRedisStoreFromClient(redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}))
}

func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(key string) string { return redisKeyPrefix + key }

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	fields, err := s.rdb.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	e := &Entry{
		Key:      key,
		Keyword:  fields["keyword"],
		Location: fields["location"],
	}
	if err := json.Unmarshal([]byte(fields["places"]), &e.Places); err != nil {
		return nil, fmt.Errorf("decoding places: %w", err)
	}
	e.ResultsCount, _ = strconv.Atoi(fields["results_count"])
	e.HitCount, _ = strconv.ParseInt(fields["hit_count"], 10, 64)
	e.CreatedAt = parseMillis(fields["created_at"])
	e.LastAccessAt = parseMillis(fields["last_access_at"])
	e.ExpiresAt = parseMillis(fields["expires_at"])
	return e, nil
}

func parseMillis(s string) time.Time {
	ms, _ := strconv.ParseInt(s, 10, 64)
	return time.UnixMilli(ms).UTC()
}

func (s *RedisStore) Put(ctx context.Context, e *Entry) error {
	places, err := json.Marshal(e.Places)
	if err != nil {
		return fmt.Errorf("encoding places: %w", err)
	}
	k := redisKey(e.Key)
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, map[string]interface{}{
			"keyword":        e.Keyword,
			"location":       e.Location,
			"places":         string(places),
			"results_count":  e.ResultsCount,
			"created_at":     e.CreatedAt.UnixMilli(),
			"hit_count":      e.HitCount,
			"last_access_at": e.LastAccessAt.UnixMilli(),
			"expires_at":     e.ExpiresAt.UnixMilli(),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, key string, at time.Time) error {
	n, err := touchScript.Run(ctx, s.rdb, []string{redisKey(key)}, at.UnixMilli()).Int()
	if err != nil {
		return fmt.Errorf("redis touch: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Expire(ctx context.Context, key string) error {
	k := redisKey(key)
	exists, err := s.rdb.Exists(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	if err := s.rdb.HSet(ctx, k, "expires_at", epoch.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("redis expire: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
