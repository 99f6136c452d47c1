package query

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "estate-search/internal/common/errors"
	"estate-search/internal/common/logger"
	"estate-search/internal/common/metrics"
	"estate-search/internal/models"
	"estate-search/internal/search/codec"
)

const cacheKeyPrefix = "search:"

// Keyer produces the cache key suffix for a FilterSet. The filter token is
// already canonical, so equal searches share an entry.
type Keyer func(f models.FilterSet) string

// CachedSearcher is a read-through Redis cache in front of another
// Searcher. Cache failures are logged and bypassed.
type CachedSearcher struct {
	next   Searcher
	redis  *redis.Client
	key    Keyer
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSearcher(next Searcher, rdb *redis.Client, key Keyer, ttl time.Duration, log logger.Logger) *CachedSearcher {
	return &CachedSearcher{
		next:   next,
		redis:  rdb,
		key:    key,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "search-cache"}),
	}
}

// CacheKey returns the Redis key used for f. It reports false when f has no
// token but is not the empty search, so it has no key of its own.
func (c *CachedSearcher) CacheKey(f models.FilterSet) (string, bool) {
	token := c.key(f)
	if token != "" {
		return cacheKeyPrefix + token, true
	}
	if !codec.IsDefault(f) {
		return "", false
	}
	return cacheKeyPrefix + "default", true
}

func (c *CachedSearcher) Search(ctx context.Context, f models.FilterSet) (*models.SearchResult, error) {
	key, ok := c.CacheKey(f)
	if !ok {
		metrics.SearchCache.WithLabelValues("bypass").Inc()
		c.logger.Warn("No cache key for filters, bypassing cache", nil)
		return c.next.Search(ctx, f)
	}

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached models.SearchResult
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			metrics.SearchCache.WithLabelValues("hit").Inc()
			return &cached, nil
		}
		metrics.SearchCache.WithLabelValues("corrupt").Inc()
		c.logger.Warn("Discarding unreadable cache entry", map[string]interface{}{"key": key})
	case errors.Is(err, redis.Nil):
		metrics.SearchCache.WithLabelValues("miss").Inc()
	default:
		metrics.SearchCache.WithLabelValues("error").Inc()
		c.logger.WithError(apperrors.NewCacheUnavailableError(err)).Warn("Cache read failed, bypassing", map[string]interface{}{"key": key})
	}

	result, err := c.next.Search(ctx, f)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(apperrors.NewCacheUnavailableError(err)).Warn("Cache write failed", map[string]interface{}{"key": key})
	}
	return result, nil
}
