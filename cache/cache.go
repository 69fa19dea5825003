// Package cache keeps recently read products in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookstore-backend/models"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultTTL = 10 * time.Minute

// Version is the invalidation generation a cache entry was read under.
// Entries are stored per generation, so a Set racing an Invalidate writes to
// a generation nobody reads any more.
type Version int64

// noVersion makes Set a no-op when the generation could not be read.
const noVersion Version = -1

// Products is a read-through cache for single product documents. Failures are
// logged and reported as misses; the store stays the source of truth.
type Products interface {
	// Get returns the cached product. On a miss it also returns the version
	// to pass to Set once the product has been loaded from the store.
	Get(ctx context.Context, id primitive.ObjectID) (*models.Product, Version, bool)
	Set(ctx context.Context, p *models.Product, v Version)
	Invalidate(ctx context.Context, ids ...primitive.ObjectID)
	Close() error
}

func versionKey(id primitive.ObjectID) string {
	return "product:" + id.Hex() + ":version"
}

func productKey(id primitive.ObjectID, v Version) string {
	return fmt.Sprintf("product:%s:%d", id.Hex(), v)
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedis parses a redis:// URL and pings the server.
func NewRedis(ctx context.Context, url string, ttl time.Duration, logger *slog.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.ReadTimeout = 500 * time.Millisecond
	opts.WriteTimeout = 500 * time.Millisecond
	opts.DialTimeout = time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedis(client, ttl, logger), nil
}

func newRedis(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, logger: logger}
}

func (r *Redis) Get(ctx context.Context, id primitive.ObjectID) (*models.Product, Version, bool) {
	n, err := r.client.Get(ctx, versionKey(id)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("product cache read failed", "id", id.Hex(), "error", err)
		return nil, noVersion, false
	}
	v := Version(n)

	data, err := r.client.Get(ctx, productKey(id, v)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("product cache read failed", "id", id.Hex(), "error", err)
			return nil, noVersion, false
		}
		return nil, v, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.Warn("product cache entry corrupt", "id", id.Hex(), "error", err)
		return nil, v, false
	}
	return &p, v, true
}

func (r *Redis) Set(ctx context.Context, p *models.Product, v Version) {
	if v < 0 {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		r.logger.Warn("product cache encode failed", "id", p.ID.Hex(), "error", err)
		return
	}
	if err := r.client.Set(ctx, productKey(p.ID, v), data, r.ttl).Err(); err != nil {
		r.logger.Warn("product cache write failed", "id", p.ID.Hex(), "error", err)
	}
}

// Invalidate moves each product to a new generation. Version keys carry no
// expiry: a reset counter could otherwise expose an entry from an earlier
// generation that is still alive.
func (r *Redis) Invalidate(ctx context.Context, ids ...primitive.ObjectID) {
	if len(ids) == 0 {
		return
	}
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Incr(ctx, versionKey(id))
		}
		return nil
	})
	if err != nil {
		r.logger.Warn("product cache invalidate failed", "ids", len(ids), "error", err)
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Noop is used when no Redis URL is configured.
type Noop struct{}

func (Noop) Get(context.Context, primitive.ObjectID) (*models.Product, Version, bool) {
	return nil, noVersion, false
}
func (Noop) Set(context.Context, *models.Product, Version)     {}
func (Noop) Invalidate(context.Context, ...primitive.ObjectID) {}
func (Noop) Close() error                                      { return nil }
