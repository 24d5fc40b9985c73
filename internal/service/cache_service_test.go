package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingCache struct{ memoryCache }

func (f *failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("connection reset")
}

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(&memoryCache{values: map[string][]byte{}}, metrics, time.Minute, nil, true)

	var out map[string]int
	hit, err := svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "k", map[string]int{"a": 1}, 0))
	hit, err = svc.Get(context.Background(), "k", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, out["a"])

	require.NoError(t, svc.Delete(context.Background(), "k"))
	hit, _ = svc.Get(context.Background(), "k", &out)
	assert.False(t, hit)

	snapshot := metrics.Snapshot()
	assert.InDelta(t, 1.0/3.0, snapshot.CacheHitRatio, 0.001)
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := &memoryCache{values: map[string][]byte{}}
	svc := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, svc.Set(context.Background(), "k", 1, 0))
	assert.Empty(t, repo.values)

	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "k", new(int))
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceLogsBackendFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	svc := NewCacheService(&failingCache{}, nil, 0, zap.New(core), true)

	hit, err := svc.Get(context.Background(), "k", new(int))
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, logs.FilterMessage("cache get failed").Len())
}
