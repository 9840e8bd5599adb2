package core

import (
	"context"
	"strings"
	"sync"
	"time"

	dm "perfdash/data/models"
)

// DefaultMaxEntries caps the cache when no size is given
const DefaultMaxEntries = 256

type cacheEntry struct {
	table   *dm.PriceTable
	expires time.Time
}

// CachedLoader memoizes successful loads for a fixed time to live.
// Expired entries are swept on insert and the entry closest to expiry is evicted past maxEntries.
// Cached tables are shared and must be treated as read only.
type CachedLoader struct {
	next       Loader
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func NewCachedLoader(next Loader, ttl time.Duration) *CachedLoader {
	return &CachedLoader{
		next:       next,
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
		entries:    make(map[string]cacheEntry),
	}
}

func (cl *CachedLoader) LoadPrices(ctx context.Context, tickers []string, start, end time.Time) (*dm.PriceTable, error) {
	key := cacheKey(tickers, start, end)

	cl.mu.Lock()
	entry, ok := cl.entries[key]
	if ok && cl.now().Before(entry.expires) {
		cl.mu.Unlock()
		return entry.table, nil
	}
	delete(cl.entries, key)
	cl.mu.Unlock()

	table, err := cl.next.LoadPrices(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}

	cl.mu.Lock()
	now := cl.now()
	cl.sweep(now)
	cl.entries[key] = cacheEntry{table: table, expires: now.Add(cl.ttl)}
	cl.mu.Unlock()

	return table, nil
}

// sweep drops expired entries and makes room for one more, callers hold mu
func (cl *CachedLoader) sweep(now time.Time) {
	for key, entry := range cl.entries {
		if !now.Before(entry.expires) {
			delete(cl.entries, key)
		}
	}

	for cl.maxEntries > 0 && len(cl.entries) >= cl.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, entry := range cl.entries {
			if oldestKey == "" || entry.expires.Before(oldest) {
				oldestKey, oldest = key, entry.expires
			}
		}
		delete(cl.entries, oldestKey)
	}
}

// Len reports the number of cached entries, expired ones not yet swept included
func (cl *CachedLoader) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.entries)
}

func cacheKey(tickers []string, start, end time.Time) string {
	return strings.Join(NormalizeTickers(tickers), ",") + "|" + start.Format(time.DateOnly) + "|" + end.Format(time.DateOnly)
}
