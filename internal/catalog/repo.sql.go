package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brimstock/brimstock/internal/shared"
)

// Repository provides PostgreSQL backed persistence for products.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, sku, category, cost_price, selling_price, stock_quantity, reorder_threshold, created_at, updated_at`

// Insert persists a product with stock defaulted to 0.
func (r *Repository) Insert(ctx context.Context, product Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, sku, category, cost_price, selling_price, stock_quantity, reorder_threshold)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
		RETURNING `+productColumns,
		product.Name, product.SKU, product.Category, product.CostPrice, product.SellingPrice, product.ReorderThreshold,
	).Scan(scanTargets(&product)...)
	if err != nil {
		return Product{}, mapProductError(err, product.SKU)
	}
	return product, nil
}

// Update rewrites catalog fields. Stock is intentionally excluded.
func (r *Repository) Update(ctx context.Context, product Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name=$2, sku=$3, category=$4, cost_price=$5, selling_price=$6, reorder_threshold=$7, updated_at=NOW()
		WHERE id=$1`,
		product.ID, product.Name, product.SKU, product.Category, product.CostPrice, product.SellingPrice, product.ReorderThreshold,
	)
	if err != nil {
		return mapProductError(err, product.SKU)
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product", ID: product.ID}
	}
	return nil
}

// Delete removes the catalog row without cascading to historical rows.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

// Get fetches one product.
func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	var product Product
	err := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id).
		Scan(scanTargets(&product)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, &shared.NotFoundError{Entity: "product", ID: id}
		}
		return Product{}, err
	}
	return product, nil
}

// List returns a filtered page plus the unfiltered-by-page total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	page := shared.NewPagination(filter.Page, filter.PerPage, 0)
	where := `($1 = '' OR category = $1) AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR sku ILIKE '%' || $2 || '%')`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE `+where, filter.Category, filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE `+where+`
		ORDER BY name, id
		LIMIT $3 OFFSET $4`,
		filter.Category, filter.Search, page.PerPage, page.Offset(),
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var product Product
		if err := rows.Scan(scanTargets(&product)...); err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func scanTargets(p *Product) []any {
	return []any{&p.ID, &p.Name, &p.SKU, &p.Category, &p.CostPrice, &p.SellingPrice, &p.StockQuantity, &p.ReorderThreshold, &p.CreatedAt, &p.UpdatedAt}
}

func mapProductError(err error, sku string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.ConflictError{Msg: fmt.Sprintf("catalog: sku %q already exists", sku)}
	}
	return err
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
