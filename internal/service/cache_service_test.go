package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCacheRepo struct{}

func (brokenCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection refused")
}

func (brokenCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (brokenCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return errors.New("connection refused")
}

func TestCacheServiceDisabled(t *testing.T) {
	var nilService *CacheService
	assert.False(t, nilService.Enabled())
	var dest string
	assert.False(t, nilService.Get(context.Background(), "k", &dest))
	assert.NoError(t, nilService.Invalidate(context.Background(), "*"))

	disabled := NewCacheService(newMemoryCacheRepo(), nil, 0, nil, false)
	disabled.Set(context.Background(), "k", "v", 0)
	assert.False(t, disabled.Get(context.Background(), "k", &dest))
}

func TestCacheServiceRoundTrip(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemoryCacheRepo(), metrics, time.Minute, nil, true)

	svc.Set(context.Background(), "greeting", map[string]string{"msg": "hi"}, 0)
	var out map[string]string
	require.True(t, svc.Get(context.Background(), "greeting", &out))
	assert.Equal(t, "hi", out["msg"])

	assert.False(t, svc.Get(context.Background(), "missing", &out))
	stats := metrics.Snapshot()
	assert.EqualValues(t, 1, stats.CacheHits)
	assert.EqualValues(t, 1, stats.CacheMisses)
	assert.InDelta(t, 0.5, stats.CacheHitRatio, 0.0001)
}

func TestCacheServiceBackendFailuresAreMisses(t *testing.T) {
	svc := NewCacheService(brokenCacheRepo{}, nil, 0, nil, true)
	var dest string
	assert.False(t, svc.Get(context.Background(), "k", &dest))
	svc.Set(context.Background(), "k", "v", 0)
	assert.Error(t, svc.Invalidate(context.Background(), "catalog:*"))
}
