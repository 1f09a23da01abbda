package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/govsense/internal/classification"
)

const resultCacheKeyPrefix = "govsense:result:"

// ResultCache stores classification results keyed by a digest of the input,
// so a repeated submission does not call the model again. A nil cache is a
// valid no-op.
type ResultCache struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewResultCache(redisClient *redis.Client, ttl time.Duration) *ResultCache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResultCache{
		redis:  redisClient,
		tracer: otel.Tracer("govsense.internal.classifier.cache"),
		ttl:    ttl,
	}
}

// CacheKey derives the cache key for an input of the given kind.
func CacheKey(kind, model string, input []byte) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write(input)
	return resultCacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key. A miss is (nil, nil).
func (c *ResultCache) Get(ctx context.Context, key string) (*classification.Result, error) {
	if c == nil || c.redis == nil {
		return nil, nil
	}
	ctx, span := c.tracer.Start(ctx, "classifier.cache.get")
	defer span.End()

	data, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("govsense.cache_hit", false))
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("classifier: cache get: %w", err)
	}
	var r classification.Result
	if err := json.Unmarshal(data, &r); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("classifier: cache decode: %w", err)
	}
	span.SetAttributes(attribute.Bool("govsense.cache_hit", true))
	return &r, nil
}

// Set stores r under key for the cache TTL.
func (c *ResultCache) Set(ctx context.Context, key string, r *classification.Result) error {
	if c == nil || c.redis == nil || r == nil {
		return nil
	}
	ctx, span := c.tracer.Start(ctx, "classifier.cache.set")
	defer span.End()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("classifier: cache encode: %w", err)
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("classifier: cache set: %w", err)
	}
	return nil
}
