package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const dataField = "d"

// versionedWrite stores ARGV[2] under KEYS[1] unless the entry already carries
// a newer version. An empty ARGV[2] leaves a tombstone holding only the
// version.
var versionedWrite = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
if ARGV[2] == '' then
	redis.call('HDEL', KEYS[1], 'd')
	redis.call('HSET', KEYS[1], 'v', ARGV[1])
else
	redis.call('HSET', KEYS[1], 'v', ARGV[1], 'd', ARGV[2])
end
if tonumber(ARGV[3]) > 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// ViewCache is a JSON-backed Redis cache for one read projection type T.
// Keys are namespaced by prefix; ttl of 0 means keys never expire.
//
// Every entry is a hash of a version and the encoded value. Writes carrying
// an older version than the stored one are dropped, so a slow reader cannot
// put back a value that an invalidation has already superseded.
type ViewCache[T any] struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewViewCache[T any](client *goredis.Client, prefix string, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, prefix: prefix, ttl: ttl}
}

// Get returns (nil, false) on a miss, a tombstone, a Redis failure or a value
// that no longer decodes as T.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.HGet(ctx, c.prefix+key, dataField).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("view cache read failed", "key", c.prefix+key, "error", err)
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		slog.Warn("view cache entry undecodable", "key", c.prefix+key, "error", err)
		return nil, false
	}
	return &v, true
}

// Set stores value under key at version. Failures are logged; a missed cache
// write only costs a later read from the database.
func (c *ViewCache[T]) Set(ctx context.Context, key string, version int64, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Error("view cache marshal failed", "key", c.prefix+key, "error", err)
		return
	}
	if !c.write(ctx, key, version, string(data)) {
		slog.Debug("view cache write superseded", "key", c.prefix+key, "version", version)
	}
}

// Invalidate drops the cached value and records version so that writes read
// before it are refused.
func (c *ViewCache[T]) Invalidate(ctx context.Context, key string, version int64) {
	c.write(ctx, key, version, "")
}

func (c *ViewCache[T]) write(ctx context.Context, key string, version int64, data string) bool {
	n, err := versionedWrite.Run(ctx, c.client, []string{c.prefix + key}, version, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		slog.Error("view cache write failed", "key", c.prefix+key, "error", err)
		return false
	}
	return n == 1
}
