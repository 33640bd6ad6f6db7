package catalog

import (
	"strings"
	"time"

	"github.com/brimstock/brimstock/internal/types"
)

// LowStockThreshold is the fixed quantity at or below which a product is
// flagged for reordering.
const LowStockThreshold = 5

// Product models a catalog row. StockQuantity is owned here but mutated only
// by the ledger module; catalog updates never touch it.
type Product struct {
	ID               int64
	Name             string
	SKU              string
	Category         string
	CostPrice        types.Money
	SellingPrice     types.Money
	StockQuantity    int64
	ReorderThreshold int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// IsLowStock reports whether the product sits at or below the fixed
// threshold. Computed on read, never stored.
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= LowStockThreshold
}

// StockValue returns the value of the on-hand quantity at cost.
func (p Product) StockValue() types.Money {
	return p.CostPrice.Mul(p.StockQuantity)
}

// NormalizeSKU canonicalises a SKU for case-insensitive uniqueness.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// CreateInput describes a product creation request. Stock always starts at 0;
// initial quantities arrive through purchases or adjustments.
type CreateInput struct {
	Name             string
	SKU              string
	Category         string
	CostPrice        types.Money
	SellingPrice     types.Money
	ReorderThreshold int64
}

// UpdateInput is a partial update; nil fields stay unchanged. Stock is
// deliberately absent: stock changes go through ledger adjustments so the
// counter remains reconstructible from history.
type UpdateInput struct {
	Name             *string
	SKU              *string
	Category         *string
	CostPrice        *types.Money
	SellingPrice     *types.Money
	ReorderThreshold *int64
}

// ListFilter narrows product listings.
type ListFilter struct {
	Category string
	Search   string
	Page     int
	PerPage  int
}
