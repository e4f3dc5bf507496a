package cache

import (
	"context"
	"sync"
	"time"

	"volrv/internal/backtest"
)

type memoryEntry struct {
	summary   backtest.Summary
	expiresAt time.Time
}

// MemoryCache is the in-process fallback used when redis is disabled.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, runID string) (*backtest.Summary, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[runID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, runID)
		c.mu.Unlock()
		return nil, false, nil
	}
	summary := entry.summary
	return &summary, true, nil
}

func (c *MemoryCache) Set(_ context.Context, summary *backtest.Summary, ttl time.Duration) error {
	entry := memoryEntry{summary: *summary}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[summary.RunID] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, runID string) error {
	c.mu.Lock()
	delete(c.entries, runID)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error { return nil }
