package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBucketKey(t *testing.T) {
	// Thursday 2026-01-01 falls into ISO week 2026-W01.
	newYear := time.Date(2026, 1, 1, 15, 30, 0, 0, time.UTC)
	require.Equal(t, "2026-01-01", BucketKey(newYear, GroupByDay, time.UTC))
	require.Equal(t, "2026-W01", BucketKey(newYear, GroupByWeek, time.UTC))
	require.Equal(t, "2026-01", BucketKey(newYear, GroupByMonth, time.UTC))

	// Monday 2024-12-30 belongs to ISO week 2025-W01 of the next year.
	yearStraddle := time.Date(2024, 12, 30, 9, 0, 0, 0, time.UTC)
	require.Equal(t, "2025-W01", BucketKey(yearStraddle, GroupByWeek, time.UTC))
}

func TestBucketKeyTimezone(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// 18:30 UTC is already the next calendar day in Jakarta (UTC+7).
	evening := time.Date(2026, 8, 29, 18, 30, 0, 0, time.UTC)
	require.Equal(t, "2026-08-29", BucketKey(evening, GroupByDay, time.UTC))
	require.Equal(t, "2026-08-30", BucketKey(evening, GroupByDay, jakarta))
}

func TestBucketStartWeekIsMonday(t *testing.T) {
	// 2026-08-30 is a Sunday; its ISO week starts Monday 2026-08-24.
	sunday := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	start := BucketStart(sunday, GroupByWeek, time.UTC)
	require.Equal(t, time.Monday, start.Weekday())
	require.Equal(t, "2026-08-24", start.Format("2006-01-02"))

	monday := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	require.Equal(t, monday, BucketStart(monday, GroupByWeek, time.UTC))
}

func TestBucketKeysAscending(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC)
	require.Equal(t, []string{"2026-08-01", "2026-08-02", "2026-08-03", "2026-08-04"},
		BucketKeys(from, to, GroupByDay, time.UTC))

	monthsTo := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, []string{"2026-08", "2026-09", "2026-10"},
		BucketKeys(from, monthsTo, GroupByMonth, time.UTC))

	require.Nil(t, BucketKeys(to, from, GroupByDay, time.UTC))
}

func TestFillSeriesInsertsZeroBuckets(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)
	sparse := []TimeBucket{
		{Bucket: "2026-08-02", Amount: 500_00, Count: 3},
	}
	filled := FillSeries(sparse, from, to, GroupByDay, time.UTC)
	require.Len(t, filled, 3)
	require.Equal(t, TimeBucket{Bucket: "2026-08-01"}, filled[0])
	require.Equal(t, sparse[0], filled[1])
	require.Equal(t, TimeBucket{Bucket: "2026-08-03"}, filled[2])
}

func TestLastNMonths(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rng := LastNMonths(now, 6, time.UTC)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), rng.From)
	require.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), rng.To)
	require.Len(t, BucketKeys(rng.From, rng.To, GroupByMonth, time.UTC), 6)
}

func TestLastNDays(t *testing.T) {
	now := time.Date(2026, 8, 30, 23, 59, 0, 0, time.UTC)
	rng := LastNDays(now, 30, time.UTC)
	require.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), rng.From)
	require.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), rng.To)
	require.Len(t, BucketKeys(rng.From, rng.To, GroupByDay, time.UTC), 30)
}

func TestParseGroupBy(t *testing.T) {
	g, err := ParseGroupBy("")
	require.NoError(t, err)
	require.Equal(t, GroupByDay, g)

	g, err = ParseGroupBy("week")
	require.NoError(t, err)
	require.Equal(t, GroupByWeek, g)

	_, err = ParseGroupBy("hour")
	require.Error(t, err)
}
