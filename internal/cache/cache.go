package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/newsbot/config"
	"github.com/mohammad-safakhou/newsbot/models"
	"github.com/redis/go-redis/v9"
)

// Cache stores finished analyses and warmed headlines in Redis. A nil *Cache
// is valid and makes every operation a no-op miss.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

// New connects to Redis using the configured address. Returns an error when
// the server is unreachable so startup fails loudly rather than silently
// recomputing everything.
func New(ctx context.Context, cfg config.RedisConfig) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Addr(), err)
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: log.New(log.Writer(), "[CACHE] ", log.LstdFlags)}, nil
}

// AnalysisKey derives the cache key for a URL.
func AnalysisKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return "analysis:" + hex.EncodeToString(sum[:])
}

// GetAnalysis returns the cached analysis for a URL, or (zero, false).
func (c *Cache) GetAnalysis(ctx context.Context, url string) (models.Analysis, bool) {
	if c == nil {
		return models.Analysis{}, false
	}
	b, err := c.rdb.Get(ctx, AnalysisKey(url)).Bytes()
	if err != nil {
		return models.Analysis{}, false
	}
	var a models.Analysis
	if err := json.Unmarshal(b, &a); err != nil {
		c.logger.Printf("corrupt cache entry for %s: %v", url, err)
		return models.Analysis{}, false
	}
	return a, true
}

// PutAnalysis caches an analysis under its URL hash. Best-effort.
func (c *Cache) PutAnalysis(ctx context.Context, a models.Analysis) {
	if c == nil {
		return
	}
	b, err := json.Marshal(a)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, AnalysisKey(a.Article.URL), b, c.ttl).Err(); err != nil {
		c.logger.Printf("cache write failed for %s: %v", a.Article.URL, err)
	}
}

// GetHeadlines returns warmed headlines for a category, or (nil, false).
func (c *Cache) GetHeadlines(ctx context.Context, category string) ([]models.Headline, bool) {
	if c == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, "headlines:"+category).Bytes()
	if err != nil {
		return nil, false
	}
	var hs []models.Headline
	if err := json.Unmarshal(b, &hs); err != nil {
		return nil, false
	}
	return hs, true
}

// PutHeadlines caches headlines for a category. Best-effort.
func (c *Cache) PutHeadlines(ctx context.Context, category string, hs []models.Headline) {
	if c == nil {
		return
	}
	b, err := json.Marshal(hs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, "headlines:"+category, b, c.ttl).Err(); err != nil {
		c.logger.Printf("headline cache write failed for %s: %v", category, err)
	}
}

// AcquireLock takes a short-lived distributed lock, used by the scheduler to
// avoid duplicate refreshes across replicas.
func (c *Cache) AcquireLock(ctx context.Context, key string, ttl time.Duration) bool {
	if c == nil {
		return true
	}
	ok, err := c.rdb.SetNX(ctx, "lock:"+key, "1", ttl).Result()
	if err != nil {
		return false
	}
	return ok
}

// ReleaseLock drops a lock taken with AcquireLock.
func (c *Cache) ReleaseLock(ctx context.Context, key string) {
	if c == nil {
		return
	}
	c.rdb.Del(ctx, "lock:"+key)
}
