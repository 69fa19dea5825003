package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"bookstore-backend/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKeys(t *testing.T) {
	id := primitive.NewObjectID()
	assert.Equal(t, "product:"+id.Hex()+":3", productKey(id, 3))
	assert.Equal(t, "product:"+id.Hex()+":version", versionKey(id))
}

func TestNoopAlwaysMisses(t *testing.T) {
	var c Products = Noop{}
	p := &models.Product{ID: primitive.NewObjectID(), Name: "Dune"}
	c.Set(context.Background(), p, 0)
	_, _, ok := c.Get(context.Background(), p.ID)
	assert.False(t, ok)
	c.Invalidate(context.Background(), p.ID)
	assert.NoError(t, c.Close())
}

func TestRedisUnavailableIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	c := newRedis(client, 0, discardLogger())
	assert.Equal(t, DefaultTTL, c.ttl)

	ctx := context.Background()
	p := &models.Product{ID: primitive.NewObjectID(), Name: "Dune"}
	_, v, ok := c.Get(ctx, p.ID)
	assert.False(t, ok)
	assert.Equal(t, noVersion, v, "an unreadable generation must not be written")
	c.Set(ctx, p, v)
	c.Invalidate(ctx, p.ID)
}

func TestNewRedisRejectsBadURL(t *testing.T) {
	_, err := NewRedis(context.Background(), "not-a-url", time.Minute, discardLogger())
	assert.Error(t, err)
}
