package ledger

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brimstock/brimstock/internal/catalog"
	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

// Repository provides PostgreSQL backed persistence for the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction. Serialization
// failures and deadlocks surface as TransactionAbortError: nothing was
// persisted and the whole operation is safe to retry.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return mapTxError(err)
	}
	wrapper := &txRepo{tx: tx}
	if err := fn(ctx, wrapper); err != nil {
		_ = tx.Rollback(ctx)
		return mapTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapTxError(err)
	}
	return nil
}

func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03":
			return &shared.TransactionAbortError{Err: err}
		}
	}
	return err
}

// GetProductForUpdate locks the product row for the rest of the scope, so
// the sufficiency check and the counter write cannot interleave with a
// concurrent mutation on the same product.
func (r *txRepo) GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error) {
	var p catalog.Product
	err := r.tx.QueryRow(ctx, `
		SELECT id, name, sku, category, cost_price, selling_price, stock_quantity, reorder_threshold, created_at, updated_at
		FROM products WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.Name, &p.SKU, &p.Category, &p.CostPrice, &p.SellingPrice, &p.StockQuantity, &p.ReorderThreshold, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Product{}, &shared.NotFoundError{Entity: "product", ID: id}
		}
		return catalog.Product{}, err
	}
	return p, nil
}

func (r *txRepo) SetProductStock(ctx context.Context, id int64, qty int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock_quantity=$2, updated_at=NOW() WHERE id=$1`, id, qty)
	return err
}

func (r *txRepo) SetProductCost(ctx context.Context, id int64, cost types.Money) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET cost_price=$2, updated_at=NOW() WHERE id=$1`, id, cost)
	return err
}

const saleColumns = `id, product_id, product_name, product_sku, product_price, quantity, unit_price, total_price, payment_method, payment_status, actor, occurred_at`

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) (Sale, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO sales (product_id, product_name, product_sku, product_price, quantity, unit_price, total_price, payment_method, payment_status, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		sale.ProductID, sale.Snapshot.Name, sale.Snapshot.SKU, sale.Snapshot.Price,
		sale.Quantity, sale.UnitPrice, sale.TotalPrice, sale.PaymentMethod, sale.PaymentStatus, sale.Actor, sale.OccurredAt,
	).Scan(&sale.ID)
	return sale, err
}

func (r *txRepo) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1 FOR UPDATE`, id)
	return scanSale(row, id)
}

func (r *txRepo) UpdateSale(ctx context.Context, sale Sale) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE sales SET quantity=$2, unit_price=$3, total_price=$4, payment_method=$5, payment_status=$6 WHERE id=$1`,
		sale.ID, sale.Quantity, sale.UnitPrice, sale.TotalPrice, sale.PaymentMethod, sale.PaymentStatus,
	)
	return err
}

func (r *txRepo) DeleteSale(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM sales WHERE id=$1`, id)
	return err
}

const purchaseColumns = `id, product_id, product_name, product_sku, product_price, quantity, unit_cost, total_cost, supplier, actor, occurred_at`

func (r *txRepo) InsertPurchase(ctx context.Context, purchase Purchase) (Purchase, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO purchases (product_id, product_name, product_sku, product_price, quantity, unit_cost, total_cost, supplier, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		purchase.ProductID, purchase.Snapshot.Name, purchase.Snapshot.SKU, purchase.Snapshot.Price,
		purchase.Quantity, purchase.UnitCost, purchase.TotalCost, purchase.Supplier, purchase.Actor, purchase.OccurredAt,
	).Scan(&purchase.ID)
	return purchase, err
}

func (r *txRepo) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1 FOR UPDATE`, id)
	return scanPurchase(row, id)
}

func (r *txRepo) UpdatePurchase(ctx context.Context, purchase Purchase) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE purchases SET quantity=$2, unit_cost=$3, total_cost=$4, supplier=$5 WHERE id=$1`,
		purchase.ID, purchase.Quantity, purchase.UnitCost, purchase.TotalCost, purchase.Supplier,
	)
	return err
}

func (r *txRepo) DeletePurchase(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM purchases WHERE id=$1`, id)
	return err
}

func (r *txRepo) InsertAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error) {
	err := r.tx.QueryRow(ctx, `
		INSERT INTO adjustments (product_id, product_name, product_sku, product_price, delta, reason, actor, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		adj.ProductID, adj.Snapshot.Name, adj.Snapshot.SKU, adj.Snapshot.Price,
		adj.Delta, adj.Reason, adj.Actor, adj.OccurredAt,
	).Scan(&adj.ID)
	return adj, err
}

// Fetch helpers outside the atomic scope.

// GetSale returns one sale row.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id=$1`, id)
	return scanSale(row, id)
}

// GetPurchase returns one purchase row.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE id=$1`, id)
	return scanPurchase(row, id)
}

// ListSales returns a filtered page, newest first.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)
	where := `($1 = 0 OR product_id = $1)
		AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		AND ($3::timestamptz IS NULL OR occurred_at < $3)`
	from, to := rangeParams(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE `+where, filter.ProductID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+saleColumns+` FROM sales WHERE `+where+`
		ORDER BY occurred_at DESC, id DESC LIMIT $4 OFFSET $5`,
		filter.ProductID, from, to, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		sale, err := scanSale(rows, 0)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// ListPurchases returns a filtered page, newest first.
func (r *Repository) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)
	where := `($1 = 0 OR product_id = $1)
		AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		AND ($3::timestamptz IS NULL OR occurred_at < $3)`
	from, to := rangeParams(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchases WHERE `+where, filter.ProductID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+purchaseColumns+` FROM purchases WHERE `+where+`
		ORDER BY occurred_at DESC, id DESC LIMIT $4 OFFSET $5`,
		filter.ProductID, from, to, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		purchase, err := scanPurchase(rows, 0)
		if err != nil {
			return nil, 0, err
		}
		purchases = append(purchases, purchase)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return purchases, total, nil
}

// ListAdjustments returns a filtered page, newest first.
func (r *Repository) ListAdjustments(ctx context.Context, filter ListFilter) ([]Adjustment, int, error) {
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)
	where := `($1 = 0 OR product_id = $1)
		AND ($2::timestamptz IS NULL OR occurred_at >= $2)
		AND ($3::timestamptz IS NULL OR occurred_at < $3)`
	from, to := rangeParams(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM adjustments WHERE `+where, filter.ProductID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, product_name, product_sku, product_price, delta, reason, actor, occurred_at
		FROM adjustments WHERE `+where+`
		ORDER BY occurred_at DESC, id DESC LIMIT $4 OFFSET $5`,
		filter.ProductID, from, to, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var adjustments []Adjustment
	for rows.Next() {
		var adj Adjustment
		if err := rows.Scan(&adj.ID, &adj.ProductID, &adj.Snapshot.Name, &adj.Snapshot.SKU, &adj.Snapshot.Price, &adj.Delta, &adj.Reason, &adj.Actor, &adj.OccurredAt); err != nil {
			return nil, 0, err
		}
		adjustments = append(adjustments, adj)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return adjustments, total, nil
}

func rangeParams(filter ListFilter) (any, any) {
	var from, to any
	if !filter.From.IsZero() {
		from = filter.From
	}
	if !filter.To.IsZero() {
		to = filter.To
	}
	return from, to
}

func scanSale(row pgx.Row, id int64) (Sale, error) {
	var sale Sale
	err := row.Scan(&sale.ID, &sale.ProductID, &sale.Snapshot.Name, &sale.Snapshot.SKU, &sale.Snapshot.Price,
		&sale.Quantity, &sale.UnitPrice, &sale.TotalPrice, &sale.PaymentMethod, &sale.PaymentStatus, &sale.Actor, &sale.OccurredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id}
		}
		return Sale{}, err
	}
	return sale, nil
}

func scanPurchase(row pgx.Row, id int64) (Purchase, error) {
	var purchase Purchase
	err := row.Scan(&purchase.ID, &purchase.ProductID, &purchase.Snapshot.Name, &purchase.Snapshot.SKU, &purchase.Snapshot.Price,
		&purchase.Quantity, &purchase.UnitCost, &purchase.TotalCost, &purchase.Supplier, &purchase.Actor, &purchase.OccurredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: id}
		}
		return Purchase{}, err
	}
	return purchase, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
