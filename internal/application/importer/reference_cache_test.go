package importer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

func TestReferenceCache_GetSet(t *testing.T) {
	cache := NewReferenceCache(nil)

	_, ok := cache.Get(common.RefPort, "101")
	assert.False(t, ok)

	cache.Set(common.RefPort, "101", "uuid-1")
	id, ok := cache.Get(common.RefPort, "101")
	assert.True(t, ok)
	assert.Equal(t, "uuid-1", id)

	stats := cache.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Equal(t, 1, stats.Sizes[common.RefPort])
	assert.Equal(t, 1, stats.Total)
}

func TestReferenceCache_HitRateZeroWithoutRequests(t *testing.T) {
	cache := NewReferenceCache(nil)
	assert.Equal(t, 0.0, cache.Stats().HitRate)
}

func TestReferenceCache_LRUEvictionWithinKind(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := NewReferenceCache(clock)

	for i := 0; i < MaxEntriesPerKind; i++ {
		cache.Set(common.RefPort, fmt.Sprintf("p%d", i), "id")
		clock.Advance(time.Millisecond)
	}
	// Touch p0 so it is no longer the LRU entry
	_, _ = cache.Get(common.RefPort, "p0")
	clock.Advance(time.Millisecond)

	cache.Set(common.RefPort, "overflow", "id")

	assert.Equal(t, MaxEntriesPerKind, cache.Stats().Sizes[common.RefPort])
	_, ok := cache.Get(common.RefPort, "p0")
	assert.True(t, ok, "recently touched entry survives eviction")
	_, ok = cache.Get(common.RefPort, "p1")
	assert.False(t, ok, "LRU entry was evicted")
}

func TestReferenceCache_ClearAndResetStats(t *testing.T) {
	cache := NewReferenceCache(nil)
	cache.Set(common.RefShip, "410", "uuid-ship")
	_, _ = cache.Get(common.RefShip, "410")

	cache.ResetStats()
	stats := cache.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, 1, stats.Total, "entries preserved across ResetStats")

	cache.Clear()
	stats = cache.Stats()
	assert.Equal(t, 0, stats.Total)
}

func TestReferenceCache_ConcurrentAccess(t *testing.T) {
	cache := NewReferenceCache(nil)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", i%50)
				cache.Set(common.RefCruiseLine, key, "id")
				_, _ = cache.Get(common.RefCruiseLine, key)
			}
		}(w)
	}
	wg.Wait()

	stats := cache.Stats()
	assert.Equal(t, 50, stats.Sizes[common.RefCruiseLine])
	assert.Equal(t, int64(4000), stats.Hits+stats.Misses)
}
