package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"rental-search/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "embedding:query:"

// CachedProvider memoises query vectors in Redis. Cache errors are logged
// and never fail a request.
type CachedProvider struct {
	next   Provider
	redis  redis.Cmdable
	model  string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedProvider(next Provider, rdb redis.Cmdable, model string, ttl time.Duration, log logger.Logger) *CachedProvider {
	return &CachedProvider{
		next:   next,
		redis:  rdb,
		model:  model,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "embedding-cache"}),
	}
}

func (c *CachedProvider) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *CachedProvider) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float32
		if jsonErr := json.Unmarshal(cached, &vec); jsonErr == nil && len(vec) > 0 {
			return vec, nil
		}
		c.logger.Warn("discarding corrupt cached embedding", map[string]interface{}{"key": key})
	case err != redis.Nil:
		c.logger.Warn("embedding cache read failed", map[string]interface{}{"error": err})
	}

	vec, err := c.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(vec); err == nil {
		if err := c.redis.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("embedding cache write failed", map[string]interface{}{"error": err})
		}
	}
	return vec, nil
}
