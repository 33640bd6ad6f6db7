package reporting

import (
	"fmt"
	"time"

	"github.com/brimstock/brimstock/internal/shared"
)

// GroupBy selects the calendar bucket size for a report series.
type GroupBy string

const (
	GroupByDay   GroupBy = "day"
	GroupByWeek  GroupBy = "week"
	GroupByMonth GroupBy = "month"
)

// Valid reports whether the value is a known bucket size.
func (g GroupBy) Valid() bool {
	return g == GroupByDay || g == GroupByWeek || g == GroupByMonth
}

// ParseGroupBy reads a query value, defaulting to day.
func ParseGroupBy(value string) (GroupBy, error) {
	if value == "" {
		return GroupByDay, nil
	}
	g := GroupBy(value)
	if !g.Valid() {
		return "", shared.Validationf("reporting: group_by must be day, week or month")
	}
	return g, nil
}

// BucketKey formats the calendar bucket holding t, evaluated in loc.
// Days render as 2006-01-02, ISO weeks as 2006-W03, months as 2006-01.
func BucketKey(t time.Time, g GroupBy, loc *time.Location) string {
	t = t.In(loc)
	switch g {
	case GroupByWeek:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GroupByMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// BucketStart truncates t to the start of its bucket in loc. Weeks start on
// Monday to match ISO numbering.
func BucketStart(t time.Time, g GroupBy, loc *time.Location) time.Time {
	t = t.In(loc)
	switch g {
	case GroupByWeek:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case GroupByMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	}
}

// NextBucket advances one bucket.
func NextBucket(start time.Time, g GroupBy) time.Time {
	switch g {
	case GroupByWeek:
		return start.AddDate(0, 0, 7)
	case GroupByMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// BucketKeys enumerates the ascending bucket keys covering [from, to).
func BucketKeys(from, to time.Time, g GroupBy, loc *time.Location) []string {
	if !from.Before(to) {
		return nil
	}
	var keys []string
	for cur := BucketStart(from, g, loc); cur.Before(to); cur = NextBucket(cur, g) {
		keys = append(keys, BucketKey(cur, g, loc))
	}
	return keys
}

// FillSeries projects sparse buckets onto the full ascending key sequence
// for the range, inserting zero buckets where nothing happened.
func FillSeries(points []TimeBucket, from, to time.Time, g GroupBy, loc *time.Location) []TimeBucket {
	byKey := make(map[string]TimeBucket, len(points))
	for _, p := range points {
		byKey[p.Bucket] = p
	}
	keys := BucketKeys(from, to, g, loc)
	out := make([]TimeBucket, 0, len(keys))
	for _, key := range keys {
		if p, ok := byKey[key]; ok {
			out = append(out, p)
			continue
		}
		out = append(out, TimeBucket{Bucket: key})
	}
	return out
}

// DayRange returns the calendar day holding now, in loc.
func DayRange(now time.Time, loc *time.Location) Range {
	t := now.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return Range{From: start, To: start.AddDate(0, 0, 1)}
}

// LastNDays returns the trailing n calendar days ending with today, in loc.
func LastNDays(now time.Time, n int, loc *time.Location) Range {
	today := DayRange(now, loc)
	return Range{From: today.From.AddDate(0, 0, -(n - 1)), To: today.To}
}

// LastNMonths returns the trailing n calendar months including the current
// one, in loc.
func LastNMonths(now time.Time, n int, loc *time.Location) Range {
	t := now.In(loc)
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return Range{From: monthStart.AddDate(0, -(n - 1), 0), To: monthStart.AddDate(0, 1, 0)}
}
