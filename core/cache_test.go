package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ex "perfdash/data/extensions"
	dm "perfdash/data/models"
)

func TestCachedLoaderHitsAndExpires(t *testing.T) {
	source := &stubSource{series: map[string][]dm.PricePoint{"A": points(2, 1, 2, 3)}}
	cache := NewCachedLoader(NewPriceLoader(source), time.Minute)

	now := day(1)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	first, err := cache.LoadPrices(ctx, []string{"A"}, day(1), day(10))
	require.NoError(t, err)

	second, err := cache.LoadPrices(ctx, []string{" a "}, day(1), day(10))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "same table", first, second)
	ex.AssertAreEqual(t, "source calls", 1, source.calls)

	_, err = cache.LoadPrices(ctx, []string{"A"}, day(2), day(10))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "other range", 2, source.calls)
	ex.AssertAreEqual(t, "entries", 2, cache.Len())

	now = now.Add(2 * time.Minute)
	_, err = cache.LoadPrices(ctx, []string{"A"}, day(1), day(10))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "after expiry", 3, source.calls)
}

func TestCachedLoaderDoesNotCacheErrors(t *testing.T) {
	source := &stubSource{}
	cache := NewCachedLoader(NewPriceLoader(source), time.Minute)

	for range 2 {
		if _, err := cache.LoadPrices(context.Background(), []string{"A"}, day(1), day(10)); err == nil {
			t.Fatalf("expected an error without data")
		}
	}
	ex.AssertAreEqual(t, "source calls", 2, source.calls)
	ex.AssertAreEqual(t, "entries", 0, cache.Len())
}

func TestCachedLoaderSweepsExpiredEntries(t *testing.T) {
	source := &stubSource{series: map[string][]dm.PricePoint{"A": points(2, 1, 2, 3)}}
	cache := NewCachedLoader(NewPriceLoader(source), time.Minute)

	now := day(1)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	for d := 1; d <= 5; d++ {
		_, err := cache.LoadPrices(ctx, []string{"A"}, day(1), day(10+d))
		require.NoError(t, err)
	}
	ex.AssertAreEqual(t, "entries before expiry", 5, cache.Len())

	now = now.Add(2 * time.Minute)
	_, err := cache.LoadPrices(ctx, []string{"A"}, day(1), day(30))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "entries after sweep", 1, cache.Len())
}

func TestCachedLoaderEvictsPastMaxEntries(t *testing.T) {
	source := &stubSource{series: map[string][]dm.PricePoint{"A": points(2, 1, 2, 3)}}
	cache := NewCachedLoader(NewPriceLoader(source), time.Hour)
	cache.maxEntries = 3

	now := day(1)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	for d := 1; d <= 5; d++ {
		now = now.Add(time.Minute)
		_, err := cache.LoadPrices(ctx, []string{"A"}, day(1), day(10+d))
		require.NoError(t, err)
	}
	ex.AssertAreEqual(t, "entries", 3, cache.Len())

	// the newest range is still cached, the oldest was evicted
	calls := source.calls
	_, err := cache.LoadPrices(ctx, []string{"A"}, day(1), day(15))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "newest hit", calls, source.calls)

	_, err = cache.LoadPrices(ctx, []string{"A"}, day(1), day(11))
	require.NoError(t, err)
	ex.AssertAreEqual(t, "oldest miss", calls+1, source.calls)
}
