package expense

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brimstock/brimstock/internal/shared"
)

// Repository is the pgx-backed expense store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const expenseColumns = `id, category, amount, description, payment_method, actor, spent_at, created_at`

func (r *Repository) Insert(ctx context.Context, exp Expense) (Expense, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO expenses (category, amount, description, payment_method, actor, spent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+expenseColumns,
		exp.Category, int64(exp.Amount), exp.Description, exp.PaymentMethod, exp.Actor, exp.SpentAt,
	)
	return scanExpense(row)
}

func (r *Repository) Update(ctx context.Context, exp Expense) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE expenses
		SET category = $2, amount = $3, description = $4, payment_method = $5, spent_at = $6
		WHERE id = $1`,
		exp.ID, exp.Category, int64(exp.Amount), exp.Description, exp.PaymentMethod, exp.SpentAt,
	)
	if err != nil {
		return fmt.Errorf("expense: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "expense", ID: exp.ID}
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("expense: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "expense", ID: id}
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Expense, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = $1`, id)
	exp, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Expense{}, &shared.NotFoundError{Entity: "expense", ID: id}
	}
	return exp, err
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Expense, int, error) {
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)
	from, to := nullableRange(filter)

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM expenses
		WHERE ($1 = '' OR category = $1)
		  AND ($2::timestamptz IS NULL OR spent_at >= $2)
		  AND ($3::timestamptz IS NULL OR spent_at < $3)`,
		filter.Category, from, to,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("expense: count: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+expenseColumns+` FROM expenses
		WHERE ($1 = '' OR category = $1)
		  AND ($2::timestamptz IS NULL OR spent_at >= $2)
		  AND ($3::timestamptz IS NULL OR spent_at < $3)
		ORDER BY spent_at DESC, id DESC
		LIMIT $4 OFFSET $5`,
		filter.Category, from, to, page.PerPage, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("expense: list: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		exp, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, exp)
	}
	return out, total, rows.Err()
}

func nullableRange(filter ListFilter) (any, any) {
	var from, to any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}
	return from, to
}

func scanExpense(row pgx.Row) (Expense, error) {
	var exp Expense
	err := row.Scan(
		&exp.ID, &exp.Category, &exp.Amount, &exp.Description,
		&exp.PaymentMethod, &exp.Actor, &exp.SpentAt, &exp.CreatedAt,
	)
	if err != nil {
		return Expense{}, err
	}
	return exp, nil
}
