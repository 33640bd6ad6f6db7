package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memTimeline struct {
	rows []TimelineRow

	lastOffset int
	lastLimit  int
}

func (m *memTimeline) TimelineWindow(ctx context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	m.lastOffset = offset
	m.lastLimit = limit
	if offset >= len(m.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.rows) {
		end = len(m.rows)
	}
	return m.rows[offset:end], nil
}

func (m *memTimeline) TimelineAll(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	return m.rows, nil
}

func seedRows(n int) []TimelineRow {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, TimelineRow{
			Ref:        fmt.Sprintf("ref-%d", i),
			Actor:      "dina",
			Action:     "create_sale",
			Entity:     "sale",
			OccurredAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &memTimeline{rows: seedRows(45)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)
	require.Equal(t, 21, repo.lastLimit)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.PrevPage)
	require.Equal(t, 40, repo.lastOffset)
}

func TestTimelinePageSizeClamp(t *testing.T) {
	repo := &memTimeline{rows: seedRows(120)}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, result.Rows, 50)
	require.Equal(t, 50, result.Paging.PageSize)
	require.Equal(t, 1, result.Paging.Page)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: -4, PageSize: 0})
	require.NoError(t, err)
	require.Len(t, result.Rows, 20)
	require.Equal(t, 1, result.Paging.Page)
}

func TestExportReturnsEverything(t *testing.T) {
	repo := &memTimeline{rows: seedRows(120)}
	svc := NewService(repo)

	rows, err := svc.Export(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Len(t, rows, 120)
}
