package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/campus-gradebook-api/pkg/errors"
)

const summaryKeyPrefix = "gradebook:class"

// SummaryKey is the cache key of a class gradebook summary for one period.
// An empty period addresses the all-periods summary.
func SummaryKey(classID int64, period string) string {
	if period == "" {
		period = "all"
	}
	return fmt.Sprintf("%s:%d:%s", summaryKeyPrefix, classID, period)
}

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches computed gradebook summaries and records hit metrics.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get reads a cached entry into dest and reports whether it was a hit. Redis
// failures count as misses for metrics but are returned to the caller.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores the value in cache.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes cached values for the provided pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, pattern); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("pattern", pattern), zap.Error(err))
		return err
	}
	return nil
}

// InvalidateClass drops every cached summary of the class. Failures are
// logged and swallowed: a stale summary expires with its TTL.
func (s *CacheService) InvalidateClass(ctx context.Context, classID int64) {
	_ = s.Invalidate(ctx, fmt.Sprintf("%s:%d:*", summaryKeyPrefix, classID))
}

// InvalidateAll drops every cached summary.
func (s *CacheService) InvalidateAll(ctx context.Context) {
	_ = s.Invalidate(ctx, summaryKeyPrefix+":*")
}
