package distance

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/freightledger/freightledger/internal/geo"
)

// CacheConfig holds configuration for the distance cache.
type CacheConfig struct {
	// TTL is how long a provider distance stays valid (default: 6 hours).
	TTL time.Duration

	// GridSize is the size of cache grid cells in degrees (default: 0.001 ~ 110m).
	// Endpoints within the same grid cell share cached distances.
	GridSize float64

	// CleanupInterval is how often to drop expired entries (default: 10 minutes).
	CleanupInterval time.Duration

	Logger zerolog.Logger
}

// Cache memoizes provider distances per (mode, origin cell, destination cell).
// Only provider results are stored; analytic fallbacks are recomputed.
type Cache struct {
	ttl             time.Duration
	gridSize        float64
	cleanupInterval time.Duration
	logger          zerolog.Logger

	mu          sync.RWMutex
	entries     map[string]*cachedDistance
	lastCleanup time.Time
}

type cachedDistance struct {
	result    Result
	expiresAt time.Time
}

// NewCache creates a new distance cache.
func NewCache(cfg CacheConfig) *Cache {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 6 * time.Hour
	}

	gridSize := cfg.GridSize
	if gridSize == 0 {
		gridSize = 0.001
	}

	cleanupInterval := cfg.CleanupInterval
	if cleanupInterval == 0 {
		cleanupInterval = 10 * time.Minute
	}

	return &Cache{
		ttl:             ttl,
		gridSize:        gridSize,
		cleanupInterval: cleanupInterval,
		logger:          cfg.Logger,
		entries:         make(map[string]*cachedDistance),
		lastCleanup:     time.Now(),
	}
}

// Get returns the cached result for the leg, if present and fresh.
func (c *Cache) Get(mode Mode, origin, destination geo.Point) (Result, bool) {
	key := c.key(mode, origin, destination)

	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.entries[key]
	if !ok || !time.Now().Before(cached.expiresAt) {
		return Result{}, false
	}

	c.logger.Debug().
		Str("cache_key", key).
		Msg("cache hit for distance")
	return cached.result, true
}

// Set stores a provider result.
func (c *Cache) Set(mode Mode, origin, destination geo.Point, result Result) {
	key := c.key(mode, origin, destination)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cachedDistance{
		result:    result,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.cleanupIfNeeded()
}

// key quantizes both endpoints onto the grid.
// Format: {mode}:{originLat},{originLon}:{destLat},{destLon}.
func (c *Cache) key(mode Mode, origin, destination geo.Point) string {
	return fmt.Sprintf("%s:%.4f,%.4f:%.4f,%.4f",
		mode,
		c.snap(origin.Lat), c.snap(origin.Lon),
		c.snap(destination.Lat), c.snap(destination.Lon),
	)
}

func (c *Cache) snap(v float64) float64 {
	return math.Floor(v/c.gridSize) * c.gridSize
}

// cleanupIfNeeded removes expired entries. Callers must hold the write lock.
func (c *Cache) cleanupIfNeeded() {
	now := time.Now()
	if now.Sub(c.lastCleanup) < c.cleanupInterval {
		return
	}

	c.lastCleanup = now
	expired := 0
	for key, cached := range c.entries {
		if now.After(cached.expiresAt) {
			delete(c.entries, key)
			expired++
		}
	}

	if expired > 0 {
		c.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired distance cache entries")
	}
}

// Invalidate clears all cached distances.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cachedDistance)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	TotalEntries int
	FreshEntries int
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := time.Now()
	fresh := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			fresh++
		}
	}

	return CacheStats{
		TotalEntries: len(c.entries),
		FreshEntries: fresh,
	}
}
