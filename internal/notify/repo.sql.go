package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brimstock/brimstock/internal/platform/db"
	"github.com/brimstock/brimstock/internal/shared"
)

// Repository is the pgx-backed notification store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, event_ref, recipient, type, title, message, link, is_read, created_at`

// InsertBatch persists one fan-out batch in a single transaction so a
// partial fan-out never becomes visible.
func (r *Repository) InsertBatch(ctx context.Context, notifications []Notification) ([]Notification, error) {
	out := make([]Notification, 0, len(notifications))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, n := range notifications {
			row := tx.QueryRow(ctx, `
				INSERT INTO notifications (event_ref, recipient, type, title, message, link)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING `+notificationColumns,
				n.EventRef, n.Recipient, string(n.Type), n.Title, n.Message, n.Link,
			)
			stored, err := scanNotification(row)
			if err != nil {
				return fmt.Errorf("notify: insert: %w", err)
			}
			out = append(out, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Notification, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, &shared.NotFoundError{Entity: "notification", ID: id}
	}
	return n, err
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Notification, int, int, error) {
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)

	var total, unread int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications WHERE recipient = $1`,
		filter.Recipient,
	).Scan(&total, &unread)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("notify: count: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE recipient = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`,
		filter.Recipient, page.PerPage, page.Offset(),
	)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("notify: list: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, 0, err
		}
		out = append(out, n)
	}
	return out, total, unread, rows.Err()
}

// MarkRead is idempotent: re-marking an already-read row matches it again
// and reports success.
func (r *Repository) MarkRead(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("notify: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "notification", ID: id}
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient = $1 AND NOT is_read`,
		recipient,
	)
	if err != nil {
		return 0, fmt.Errorf("notify: mark all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("notify: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "notification", ID: id}
	}
	return nil
}

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	var t string
	err := row.Scan(&n.ID, &n.EventRef, &n.Recipient, &t, &n.Title, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return Notification{}, err
	}
	n.Type = Type(t)
	return n, nil
}
