// Package cache holds in-memory caches for rendered page fragments
package cache

import (
	"fmt"
	"html/template"
	"sync"
	"time"
)

// RenderedAbstract is one cached rendering of an article abstract
type RenderedAbstract struct {
	HTML      template.HTML
	Version   int64 // article updated_at in unix nanoseconds
	CreatedAt time.Time
	LastUsed  time.Time
}

// AbstractCache caches rendered markdown abstracts by article id.
// An entry is only served while its version matches the article's.
type AbstractCache struct {
	cache       map[int64]*RenderedAbstract
	mutex       sync.Mutex
	maxEntries  int
	maxAge      time.Duration
	cleanupTick time.Duration
	stopCleanup chan struct{}
	stopOnce    sync.Once
	hits        int64
	misses      int64
}

// NewAbstractCache creates a cache with the given limits and starts its cleanup loop
func NewAbstractCache(maxEntries int, maxAge time.Duration) *AbstractCache {
	ac := &AbstractCache{
		cache:       make(map[int64]*RenderedAbstract),
		maxEntries:  maxEntries,
		maxAge:      maxAge,
		cleanupTick: time.Minute,
		stopCleanup: make(chan struct{}),
	}
	go ac.cleanupLoop()
	return ac
}

// Get returns the cached rendering of articleID at version
func (ac *AbstractCache) Get(articleID, version int64) (template.HTML, bool) {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	entry, exists := ac.cache[articleID]
	if !exists || entry.Version != version {
		ac.misses++
		return "", false
	}
	ac.hits++
	entry.LastUsed = time.Now()
	return entry.HTML, true
}

// Set stores a rendering, evicting the least recently used entry when full
func (ac *AbstractCache) Set(articleID, version int64, html template.HTML) {
	now := time.Now()
	ac.mutex.Lock()
	defer ac.mutex.Unlock()

	if _, exists := ac.cache[articleID]; !exists && ac.maxEntries > 0 && len(ac.cache) >= ac.maxEntries {
		ac.evictOldest()
	}
	ac.cache[articleID] = &RenderedAbstract{
		HTML:      html,
		Version:   version,
		CreatedAt: now,
		LastUsed:  now,
	}
}

// GetOrRender returns the cached rendering or renders and stores it
func (ac *AbstractCache) GetOrRender(articleID, version int64, render func() template.HTML) template.HTML {
	if html, ok := ac.Get(articleID, version); ok {
		return html
	}
	html := render()
	ac.Set(articleID, version, html)
	return html
}

// evictOldest drops the least recently used entry; caller holds the mutex
func (ac *AbstractCache) evictOldest() {
	var oldestKey int64
	var oldest time.Time
	found := false
	for key, entry := range ac.cache {
		if !found || entry.LastUsed.Before(oldest) {
			oldestKey, oldest, found = key, entry.LastUsed, true
		}
	}
	if found {
		delete(ac.cache, oldestKey)
	}
}

// Len returns the number of cached entries
func (ac *AbstractCache) Len() int {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	return len(ac.cache)
}

// Stats returns hit and miss counters for logging
func (ac *AbstractCache) Stats() string {
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	total := ac.hits + ac.misses
	rate := 0.0
	if total > 0 {
		rate = float64(ac.hits) / float64(total) * 100
	}
	return fmt.Sprintf("entries=%d/%d hits=%d misses=%d hit_rate=%.1f%%", len(ac.cache), ac.maxEntries, ac.hits, ac.misses, rate)
}

// Stop ends the cleanup loop
func (ac *AbstractCache) Stop() {
	ac.stopOnce.Do(func() { close(ac.stopCleanup) })
}

func (ac *AbstractCache) cleanupLoop() {
	ticker := time.NewTicker(ac.cleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ac.cleanup(time.Now())
		case <-ac.stopCleanup:
			return
		}
	}
}

// cleanup removes entries older than maxAge
func (ac *AbstractCache) cleanup(now time.Time) int {
	if ac.maxAge <= 0 {
		return 0
	}
	ac.mutex.Lock()
	defer ac.mutex.Unlock()
	removed := 0
	for key, entry := range ac.cache {
		if now.Sub(entry.CreatedAt) > ac.maxAge {
			delete(ac.cache, key)
			removed++
		}
	}
	return removed
}
