// Package cache provides an optional Redis-backed cache for geocoding
// lookups. Geocode results change rarely, so a short TTL removes most repeat
// provider calls without staleness concerns. The cache is a decorator: the
// wrapped geocoder stays pure and the service runs fine without Redis at all.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"skycast/internal/types"
)

// Geocoder matches the resolver-side geocoding contract.
type Geocoder interface {
	Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeCandidate, error)
}

// CachedGeocoder wraps a Geocoder with a Redis read-through cache. Cache
// failures are logged and treated as misses; they never fail a lookup.
type CachedGeocoder struct {
	next   Geocoder
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis and wraps the given geocoder. The connection is
// verified with a ping so that misconfiguration surfaces at startup.
func New(next Geocoder, addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*CachedGeocoder, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to connect to redis",
			err,
		)
	}

	logger.Info("geocode cache connected", slog.String("addr", addr), slog.Duration("ttl", ttl))

	return &CachedGeocoder{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Close releases the Redis connection.
func (c *CachedGeocoder) Close() error {
	return c.client.Close()
}

// Ping reports cache connectivity for health probes.
func (c *CachedGeocoder) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Geocode returns cached candidates when present, otherwise delegates to the
// wrapped geocoder and stores the result. An empty candidate list is cached
// too; "no such place" is just as repeatable as a hit.
func (c *CachedGeocoder) Geocode(ctx context.Context, query string, limit int) ([]types.GeocodeCandidate, error) {
	key := GeocodeKey(query, limit)

	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var candidates []types.GeocodeCandidate
		if err := json.Unmarshal([]byte(val), &candidates); err == nil {
			c.logger.DebugContext(ctx, "geocode cache hit", slog.String("key", key))
			return candidates, nil
		}
		// Unreadable entry: fall through to the provider and overwrite.
		c.logger.WarnContext(ctx, "discarding corrupt geocode cache entry", slog.String("key", key))
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "geocode cache read failed", slog.String("error", err.Error()))
	}

	candidates, err := c.next.Geocode(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if bytes, err := json.Marshal(candidates); err == nil {
		if err := c.client.Set(ctx, key, bytes, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "geocode cache write failed", slog.String("error", err.Error()))
		}
	}

	return candidates, nil
}

// GeocodeKey builds the cache key for a query/limit pair. Queries are
// lowercased and trimmed so trivially different spellings share an entry.
func GeocodeKey(query string, limit int) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	normalized = strings.Join(strings.Fields(normalized), " ")
	return "skycast:geocode:" + normalized + ":" + strconv.Itoa(limit)
}
