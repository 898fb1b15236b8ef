package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"rental-search/internal/models"
	"rental-search/internal/search/filters"

	"github.com/redis/go-redis/v9"
)

const countKeyPrefix = "search:count:"

// GetStructuredCount returns how many listings match f, ignoring paging and
// sort order. Results are cached when a cache and TTL are configured; cache
// errors are logged and skipped. Store failures are returned.
func (s *Service) GetStructuredCount(ctx context.Context, f models.SearchFilters) (int, error) {
	f = f.Clone()
	if err := filters.Validate(&f); err != nil {
		return 0, err
	}

	key, cacheable := s.countKey(f)
	if cacheable {
		if v, err := s.deps.Cache.Get(ctx, key).Result(); err == nil {
			if n, convErr := strconv.Atoi(v); convErr == nil {
				return n, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("count cache read failed", map[string]interface{}{"error": err})
		}
	}

	n, err := s.deps.Store.Count(ctx, &f)
	if err != nil {
		return 0, err
	}

	if cacheable {
		if err := s.deps.Cache.Set(ctx, key, n, s.cfg.CountCacheTTL).Err(); err != nil {
			s.logger.Warn("count cache write failed", map[string]interface{}{"error": err})
		}
	}
	return n, nil
}

func (s *Service) countKey(f models.SearchFilters) (string, bool) {
	if s.deps.Cache == nil || s.cfg.CountCacheTTL <= 0 {
		return "", false
	}
	f.Limit, f.Offset, f.SortBy = 0, 0, ""
	payload, err := json.Marshal(f)
	if err != nil {
		return "", false
	}
	sum := sha256.Sum256(payload)
	return countKeyPrefix + hex.EncodeToString(sum[:]), true
}
