package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

type memRepo struct {
	rows map[int64]Notification
	seq  int64
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]Notification)}
}

func (r *memRepo) InsertBatch(ctx context.Context, notifications []Notification) ([]Notification, error) {
	out := make([]Notification, 0, len(notifications))
	for _, n := range notifications {
		r.seq++
		n.ID = r.seq
		n.CreatedAt = time.Now().UTC()
		r.rows[n.ID] = n
		out = append(out, n)
	}
	return out, nil
}

func (r *memRepo) Get(ctx context.Context, id int64) (Notification, error) {
	n, ok := r.rows[id]
	if !ok {
		return Notification{}, &shared.NotFoundError{Entity: "notification", ID: id}
	}
	return n, nil
}

func (r *memRepo) List(ctx context.Context, filter ListFilter) ([]Notification, int, int, error) {
	var out []Notification
	unread := 0
	for _, n := range r.rows {
		if n.Recipient != filter.Recipient {
			continue
		}
		out = append(out, n)
		if !n.IsRead {
			unread++
		}
	}
	return out, len(out), unread, nil
}

func (r *memRepo) MarkRead(ctx context.Context, id int64) error {
	n, ok := r.rows[id]
	if !ok {
		return &shared.NotFoundError{Entity: "notification", ID: id}
	}
	n.IsRead = true
	r.rows[id] = n
	return nil
}

func (r *memRepo) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	var changed int64
	for id, n := range r.rows {
		if n.Recipient == recipient && !n.IsRead {
			n.IsRead = true
			r.rows[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r *memRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.rows[id]; !ok {
		return &shared.NotFoundError{Entity: "notification", ID: id}
	}
	delete(r.rows, id)
	return nil
}

type memEnqueuer struct {
	enqueued []int64
	err      error
}

func (e *memEnqueuer) EnqueueDelivery(ctx context.Context, notificationID int64, recipient, title, body string) error {
	if e.err != nil {
		return e.err
	}
	e.enqueued = append(e.enqueued, notificationID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFanOutCreatesRowPerRecipient(t *testing.T) {
	repo := newMemRepo()
	enqueuer := &memEnqueuer{}
	svc := NewService(repo, StaticResolver("ayu", "budi"), enqueuer, testLogger())

	err := svc.FanOutSale(context.Background(), "Arabica Beans 1kg", 3, types.Money(360_00), "dina")
	require.NoError(t, err)
	require.Len(t, repo.rows, 2)
	require.Len(t, enqueuer.enqueued, 2)

	recipients := map[string]bool{}
	var refs []string
	for _, n := range repo.rows {
		recipients[n.Recipient] = true
		refs = append(refs, n.EventRef)
		require.Equal(t, TypeSale, n.Type)
		require.Contains(t, n.Message, "Arabica Beans 1kg")
		require.Contains(t, n.Message, "360.00")
		require.False(t, n.IsRead)
	}
	require.True(t, recipients["ayu"])
	require.True(t, recipients["budi"])
	require.Equal(t, refs[0], refs[1], "one fan-out shares one event ref")
}

func TestFanOutNoRecipients(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, StaticResolver(), &memEnqueuer{}, testLogger())

	require.NoError(t, svc.FanOutLowStock(context.Background(), "Arabica Beans 1kg", "COF-001", 4))
	require.Empty(t, repo.rows)
}

func TestFanOutResolverError(t *testing.T) {
	repo := newMemRepo()
	failing := Resolver(func(ctx context.Context, tp Type) ([]string, error) {
		return nil, errors.New("resolver down")
	})
	svc := NewService(repo, failing, &memEnqueuer{}, testLogger())

	err := svc.FanOutExpense(context.Background(), "rent", types.Money(5000_00), "dina")
	require.Error(t, err)
	require.Empty(t, repo.rows)
}

func TestEnqueueFailureDoesNotFailFanOut(t *testing.T) {
	repo := newMemRepo()
	enqueuer := &memEnqueuer{err: errors.New("queue down")}
	svc := NewService(repo, StaticResolver("ayu"), enqueuer, testLogger())

	err := svc.FanOutPurchase(context.Background(), "Arabica Beans 1kg", "Bean Importers", 10, types.Money(900_00), "dina")
	require.NoError(t, err)
	require.Len(t, repo.rows, 1)
}

func TestListWithUnreadCount(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, StaticResolver("ayu"), nil, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.FanOutSale(ctx, "Arabica Beans 1kg", 1, types.Money(120_00), "dina"))
	require.NoError(t, svc.FanOutLowStock(ctx, "Arabica Beans 1kg", "COF-001", 5))

	rows, unread, _, err := svc.List(ctx, ListFilter{Recipient: "ayu"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, 2, unread)

	require.NoError(t, svc.MarkRead(ctx, rows[0].ID))
	_, unread, _, err = svc.List(ctx, ListFilter{Recipient: "ayu"})
	require.NoError(t, err)
	require.Equal(t, 1, unread)
}

func TestMarkAllReadIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, StaticResolver("ayu"), nil, testLogger())
	ctx := context.Background()

	require.NoError(t, svc.FanOutSale(ctx, "Arabica Beans 1kg", 1, types.Money(120_00), "dina"))
	require.NoError(t, svc.FanOutSale(ctx, "Robusta Beans 1kg", 2, types.Money(180_00), "dina"))

	changed, err := svc.MarkAllRead(ctx, "ayu")
	require.NoError(t, err)
	require.EqualValues(t, 2, changed)

	changed, err = svc.MarkAllRead(ctx, "ayu")
	require.NoError(t, err)
	require.Zero(t, changed)

	require.NoError(t, svc.MarkRead(ctx, 1))
	require.NoError(t, svc.MarkRead(ctx, 1), "re-marking a read row succeeds")
}

func TestMarkReadUnknownID(t *testing.T) {
	svc := NewService(newMemRepo(), StaticResolver("ayu"), nil, testLogger())

	var notFound *shared.NotFoundError
	require.ErrorAs(t, svc.MarkRead(context.Background(), 99), &notFound)
}
