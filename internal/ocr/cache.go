package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/logging"
)

const cacheKeyPrefix = "handwriting:ocr:"

// OpenRedis parses url (redis://[:password@]host:port/db) and verifies the
// server answers PING.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// CachedEngine stores successful transcriptions in Redis.
type CachedEngine struct {
	inner  Engine
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *logging.Logger
}

// WithCache wraps e with a Redis-backed transcription cache. A nil rdb
// returns e unchanged.
func WithCache(e Engine, rdb redis.Cmdable, ttl time.Duration) Engine {
	if rdb == nil {
		return e
	}
	return &CachedEngine{
		inner:  e,
		rdb:    rdb,
		ttl:    ttl,
		logger: logging.NewLogger("ocr-cache"),
	}
}

func (c *CachedEngine) Name() string { return c.inner.Name() }

// CacheKey returns the Redis key for img recognized by engine.
func CacheKey(engine string, img imaging.RawImage) string {
	return cacheKeyPrefix + engine + ":" + img.Digest()
}

func (c *CachedEngine) Recognize(ctx context.Context, img imaging.RawImage) (*Transcription, error) {
	key := CacheKey(c.inner.Name(), img)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var tr Transcription
		if err := json.Unmarshal(data, &tr); err == nil {
			c.logger.Debug("Cache hit", "key", key, "words", tr.WordCount())
			return &tr, nil
		}
		c.logger.Warn("Discarding undecodable cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Cache lookup failed", "key", key, "error", err)
	}

	tr, err := c.inner.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(tr); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Cache store failed", "key", key, "error", err)
		}
	}
	return tr, nil
}
