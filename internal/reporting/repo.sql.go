package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brimstock/brimstock/internal/catalog"
	"github.com/brimstock/brimstock/internal/types"
)

// Aggregate is one summed pass over a range.
type Aggregate struct {
	Amount   types.Money
	Count    int64
	Quantity int64
}

// SeriesPoint is one non-empty bucket as the database sees it. Start is the
// bucket's first instant in the organization timezone.
type SeriesPoint struct {
	Start    time.Time
	Amount   types.Money
	Count    int64
	Quantity int64
}

// Repository runs the read-only aggregate queries. All bucketing happens in
// the organization timezone so calendar days line up with the business day.
type Repository struct {
	pool *pgxpool.Pool
	tz   string
}

// NewRepository builds Repository. tz is an IANA zone name.
func NewRepository(pool *pgxpool.Pool, tz string) *Repository {
	if tz == "" {
		tz = "UTC"
	}
	return &Repository{pool: pool, tz: tz}
}

func (r *Repository) SalesAggregate(ctx context.Context, rng Range, status string) (Aggregate, error) {
	var agg Aggregate
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_price), 0)::bigint, COUNT(*), COALESCE(SUM(quantity), 0)::bigint
		FROM sales
		WHERE payment_status = $1 AND occurred_at >= $2 AND occurred_at < $3`,
		status, rng.From, rng.To,
	).Scan(&agg.Amount, &agg.Count, &agg.Quantity)
	if err != nil {
		return Aggregate{}, fmt.Errorf("reporting: sales aggregate: %w", err)
	}
	return agg, nil
}

func (r *Repository) SalesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc($1, occurred_at, $2) AS bucket,
		       COALESCE(SUM(total_price), 0)::bigint, COUNT(*), COALESCE(SUM(quantity), 0)::bigint
		FROM sales
		WHERE payment_status = 'paid' AND occurred_at >= $3 AND occurred_at < $4
		GROUP BY bucket ORDER BY bucket`,
		unit, r.tz, rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: sales series: %w", err)
	}
	return collectSeries(rows)
}

func (r *Repository) TopProductsBySales(ctx context.Context, rng Range, limit int) ([]ProductStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, product_name, product_sku,
		       COALESCE(SUM(quantity), 0)::bigint, COALESCE(SUM(total_price), 0)::bigint
		FROM sales
		WHERE payment_status = 'paid' AND occurred_at >= $1 AND occurred_at < $2
		GROUP BY product_id, product_name, product_sku
		ORDER BY SUM(total_price) DESC, product_id
		LIMIT $3`,
		rng.From, rng.To, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: top products: %w", err)
	}
	defer rows.Close()

	var out []ProductStat
	for rows.Next() {
		var p ProductStat
		if err := rows.Scan(&p.ProductID, &p.Name, &p.SKU, &p.Quantity, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) TopProductsBySalesQty(ctx context.Context, rng Range, limit int) ([]ProductStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, product_name, product_sku,
		       COALESCE(SUM(quantity), 0)::bigint, COALESCE(SUM(total_price), 0)::bigint
		FROM sales
		WHERE payment_status = 'paid' AND occurred_at >= $1 AND occurred_at < $2
		GROUP BY product_id, product_name, product_sku
		ORDER BY SUM(quantity) DESC, product_id
		LIMIT $3`,
		rng.From, rng.To, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: top products by qty: %w", err)
	}
	defer rows.Close()

	var out []ProductStat
	for rows.Next() {
		var p ProductStat
		if err := rows.Scan(&p.ProductID, &p.Name, &p.SKU, &p.Quantity, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) SalesByMethod(ctx context.Context, rng Range) ([]MethodStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_price), 0)::bigint
		FROM sales
		WHERE payment_status = 'paid' AND occurred_at >= $1 AND occurred_at < $2
		GROUP BY payment_method ORDER BY SUM(total_price) DESC`,
		rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: sales by method: %w", err)
	}
	defer rows.Close()

	var out []MethodStat
	for rows.Next() {
		var m MethodStat
		if err := rows.Scan(&m.Method, &m.Orders, &m.Revenue); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *Repository) PurchasesAggregate(ctx context.Context, rng Range) (Aggregate, error) {
	var agg Aggregate
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_cost), 0)::bigint, COUNT(*), COALESCE(SUM(quantity), 0)::bigint
		FROM purchases
		WHERE occurred_at >= $1 AND occurred_at < $2`,
		rng.From, rng.To,
	).Scan(&agg.Amount, &agg.Count, &agg.Quantity)
	if err != nil {
		return Aggregate{}, fmt.Errorf("reporting: purchases aggregate: %w", err)
	}
	return agg, nil
}

func (r *Repository) PurchasesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc($1, occurred_at, $2) AS bucket,
		       COALESCE(SUM(total_cost), 0)::bigint, COUNT(*), COALESCE(SUM(quantity), 0)::bigint
		FROM purchases
		WHERE occurred_at >= $3 AND occurred_at < $4
		GROUP BY bucket ORDER BY bucket`,
		unit, r.tz, rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: purchases series: %w", err)
	}
	return collectSeries(rows)
}

func (r *Repository) TopSuppliers(ctx context.Context, rng Range, limit int) ([]SupplierStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT supplier, COUNT(*), COALESCE(SUM(total_cost), 0)::bigint
		FROM purchases
		WHERE occurred_at >= $1 AND occurred_at < $2
		GROUP BY supplier
		ORDER BY SUM(total_cost) DESC, supplier
		LIMIT $3`,
		rng.From, rng.To, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: top suppliers: %w", err)
	}
	defer rows.Close()

	var out []SupplierStat
	for rows.Next() {
		var s SupplierStat
		if err := rows.Scan(&s.Supplier, &s.Orders, &s.Spend); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) TopProductsByPurchaseQty(ctx context.Context, rng Range, limit int) ([]ProductStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT product_id, product_name, product_sku,
		       COALESCE(SUM(quantity), 0)::bigint, COALESCE(SUM(total_cost), 0)::bigint
		FROM purchases
		WHERE occurred_at >= $1 AND occurred_at < $2
		GROUP BY product_id, product_name, product_sku
		ORDER BY SUM(quantity) DESC, product_id
		LIMIT $3`,
		rng.From, rng.To, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: top purchased products: %w", err)
	}
	defer rows.Close()

	var out []ProductStat
	for rows.Next() {
		var p ProductStat
		if err := rows.Scan(&p.ProductID, &p.Name, &p.SKU, &p.Quantity, &p.Amount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) StockItems(ctx context.Context) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, sku, category, stock_quantity, cost_price
		FROM products ORDER BY category, name`,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: stock items: %w", err)
	}
	defer rows.Close()

	var out []StockItem
	for rows.Next() {
		var item StockItem
		if err := rows.Scan(&item.ProductID, &item.Name, &item.SKU, &item.Category, &item.StockQuantity, &item.CostPrice); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *Repository) ExpensesAggregate(ctx context.Context, rng Range) (Aggregate, error) {
	var agg Aggregate
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::bigint, COUNT(*)
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2`,
		rng.From, rng.To,
	).Scan(&agg.Amount, &agg.Count)
	if err != nil {
		return Aggregate{}, fmt.Errorf("reporting: expenses aggregate: %w", err)
	}
	return agg, nil
}

func (r *Repository) ExpensesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT date_trunc($1, spent_at, $2) AS bucket,
		       COALESCE(SUM(amount), 0)::bigint, COUNT(*), 0::bigint
		FROM expenses
		WHERE spent_at >= $3 AND spent_at < $4
		GROUP BY bucket ORDER BY bucket`,
		unit, r.tz, rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: expenses series: %w", err)
	}
	return collectSeries(rows)
}

func (r *Repository) ExpensesByCategory(ctx context.Context, rng Range) ([]CategoryShare, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COALESCE(SUM(amount), 0)::bigint, COUNT(*)
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
		GROUP BY category ORDER BY SUM(amount) DESC`,
		rng.From, rng.To,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: expenses by category: %w", err)
	}
	defer rows.Close()

	var out []CategoryShare
	for rows.Next() {
		var share CategoryShare
		if err := rows.Scan(&share.Category, &share.Amount, &share.Count); err != nil {
			return nil, err
		}
		out = append(out, share)
	}
	return out, rows.Err()
}

func (r *Repository) TopExpenses(ctx context.Context, rng Range, limit int) ([]ExpenseItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, category, amount, spent_at
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
		ORDER BY amount DESC, id
		LIMIT $3`,
		rng.From, rng.To, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reporting: top expenses: %w", err)
	}
	defer rows.Close()

	var out []ExpenseItem
	for rows.Next() {
		var item ExpenseItem
		if err := rows.Scan(&item.ID, &item.Category, &item.Amount, &item.SpentAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *Repository) PendingSalesCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales WHERE payment_status = 'pending'`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("reporting: pending sales count: %w", err)
	}
	return count, nil
}

func (r *Repository) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM products
		WHERE stock_quantity <= $1`,
		catalog.LowStockThreshold,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("reporting: low stock count: %w", err)
	}
	return count, nil
}

func collectSeries(rows pgx.Rows) ([]SeriesPoint, error) {
	defer rows.Close()
	var out []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.Start, &p.Amount, &p.Count, &p.Quantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
