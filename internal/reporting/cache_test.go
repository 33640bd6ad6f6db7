package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestCacheVersionInitialises(t *testing.T) {
	cache, _ := newTestCache(t)

	ver, err := cache.Version(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, ver)
}

func TestCacheBumpChangesKeys(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	before, err := cache.BuildKey(ctx, "sales", "x")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	after, err := cache.BuildKey(ctx, "sales", "x")
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestCacheFetchJSONLoadsOnce(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "dashboard", "2026-08-30")
	require.NoError(t, err)

	loads := 0
	loader := func(ctx context.Context) (any, error) {
		loads++
		return DashboardSummary{TodayRevenue: 360_00, TodayOrders: 3}, nil
	}

	var first DashboardSummary
	require.NoError(t, cache.FetchJSON(ctx, key, &first, loader))
	var second DashboardSummary
	require.NoError(t, cache.FetchJSON(ctx, key, &second, loader))

	require.Equal(t, 1, loads)
	require.Equal(t, first, second)
	require.EqualValues(t, 360_00, second.TodayRevenue)
}

func TestCacheFetchJSONReloadsAfterBump(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	loader := func(ctx context.Context) (any, error) {
		loads++
		return DashboardSummary{TodayOrders: int64(loads)}, nil
	}

	key, err := cache.BuildKey(ctx, "dashboard", "2026-08-30")
	require.NoError(t, err)
	var summary DashboardSummary
	require.NoError(t, cache.FetchJSON(ctx, key, &summary, loader))

	require.NoError(t, cache.Bump(ctx))

	key, err = cache.BuildKey(ctx, "dashboard", "2026-08-30")
	require.NoError(t, err)
	require.NoError(t, cache.FetchJSON(ctx, key, &summary, loader))

	require.Equal(t, 2, loads)
	require.EqualValues(t, 2, summary.TodayOrders)
}

func TestNilCacheDegradesToLoader(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "stock")
	require.NoError(t, err)
	require.Equal(t, "reports:stock", key)

	var report StockReport
	err = cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return StockReport{Totals: StockTotals{Products: 7}}, nil
	})
	require.NoError(t, err)
	require.EqualValues(t, 7, report.Totals.Products)
	require.NoError(t, cache.Bump(ctx))
}
