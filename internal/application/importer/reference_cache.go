package importer

import (
	"sync"
	"time"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

// Cache capacity limits. Eviction is two-level: a per-kind LRU cap, and
// a global cap that evicts from whichever kind map is currently largest.
const (
	MaxEntriesPerKind = 12_500
	MaxEntriesTotal   = 50_000
)

type cacheEntry struct {
	id           string
	lastAccessed time.Time
}

// ReferenceCache is a process-scoped LRU mapping provider identifiers to
// internal catalog IDs for the four reference-entity kinds. Safe for
// concurrent use by import workers.
type ReferenceCache struct {
	mu     sync.Mutex
	clock  shared.Clock
	maps   map[common.RefKind]map[string]*cacheEntry
	hits   int64
	misses int64
}

var cacheKinds = []common.RefKind{common.RefCruiseLine, common.RefShip, common.RefPort, common.RefRegion}

// NewReferenceCache creates an empty cache. A nil clock uses real time.
func NewReferenceCache(clock shared.Clock) *ReferenceCache {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	c := &ReferenceCache{clock: clock}
	c.reset()
	return c
}

func (c *ReferenceCache) reset() {
	c.maps = make(map[common.RefKind]map[string]*cacheEntry, len(cacheKinds))
	for _, k := range cacheKinds {
		c.maps[k] = make(map[string]*cacheEntry)
	}
}

// Get looks up an internal ID, refreshing recency on hit
func (c *ReferenceCache) Get(kind common.RefKind, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.maps[kind]
	if !ok {
		c.misses++
		return "", false
	}
	entry, ok := m[key]
	if !ok {
		c.misses++
		return "", false
	}
	entry.lastAccessed = c.clock.Now()
	c.hits++
	return entry.id, true
}

// Set stores a mapping, evicting LRU entries when caps are exceeded
func (c *ReferenceCache) Set(kind common.RefKind, key, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.maps[kind]
	if !ok {
		return
	}
	if _, exists := m[key]; !exists && len(m) >= MaxEntriesPerKind {
		evictLRU(m)
	}
	m[key] = &cacheEntry{id: id, lastAccessed: c.clock.Now()}
	if c.totalLocked() > MaxEntriesTotal {
		evictLRU(c.largestLocked())
	}
}

func (c *ReferenceCache) totalLocked() int {
	total := 0
	for _, m := range c.maps {
		total += len(m)
	}
	return total
}

func (c *ReferenceCache) largestLocked() map[string]*cacheEntry {
	var largest map[string]*cacheEntry
	for _, kind := range cacheKinds {
		m := c.maps[kind]
		if largest == nil || len(m) > len(largest) {
			largest = m
		}
	}
	return largest
}

func evictLRU(m map[string]*cacheEntry) {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range m {
		if first || e.lastAccessed.Before(oldest) {
			oldestKey, oldest = k, e.lastAccessed
			first = false
		}
	}
	if !first {
		delete(m, oldestKey)
	}
}

// Stats returns sizes and counters. HitRate is 0 when no requests were made.
func (c *ReferenceCache) Stats() common.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := common.CacheStats{
		Sizes:  make(map[common.RefKind]int, len(cacheKinds)),
		Max:    MaxEntriesTotal,
		Hits:   c.hits,
		Misses: c.misses,
	}
	for _, kind := range cacheKinds {
		stats.Sizes[kind] = len(c.maps[kind])
		stats.Total += len(c.maps[kind])
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Clear drops all entries and counters
func (c *ReferenceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.hits, c.misses = 0, 0
}

// ResetStats clears counters only, preserving entries
func (c *ReferenceCache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses = 0, 0
}
