package ledger

import (
	"time"

	"github.com/brimstock/brimstock/internal/types"
)

// PaymentStatus enumerates settlement states for a sale.
type PaymentStatus string

const (
	// PaymentStatusPaid marks a settled sale; only paid rows count as revenue.
	PaymentStatusPaid PaymentStatus = "paid"
	// PaymentStatusPending marks a sale awaiting settlement.
	PaymentStatusPending PaymentStatus = "pending"
)

// Valid reports whether the status is a known value.
func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPaid || s == PaymentStatusPending
}

// ProductSnapshot freezes catalog fields at transaction time so historical
// rows survive later edits or deletion of the product.
type ProductSnapshot struct {
	Name  string
	SKU   string
	Price types.Money
}

// Sale models one historical sale row. ProductID may dangle after the
// product is deleted; the snapshot stays authoritative for reads.
type Sale struct {
	ID            int64
	ProductID     int64
	Snapshot      ProductSnapshot
	Quantity      int64
	UnitPrice     types.Money
	TotalPrice    types.Money
	PaymentMethod string
	PaymentStatus PaymentStatus
	Actor         string
	OccurredAt    time.Time
}

// Purchase mirrors Sale on the inbound side, snapshot included.
type Purchase struct {
	ID         int64
	ProductID  int64
	Snapshot   ProductSnapshot
	Quantity   int64
	UnitCost   types.Money
	TotalCost  types.Money
	Supplier   string
	Actor      string
	OccurredAt time.Time
}

// Adjustment records an administrative stock override as its own ledger row,
// keeping the stock counter reconstructible from history.
type Adjustment struct {
	ID         int64
	ProductID  int64
	Snapshot   ProductSnapshot
	Delta      int64
	Reason     string
	Actor      string
	OccurredAt time.Time
}

// CreateSaleInput describes a sale request.
type CreateSaleInput struct {
	ProductID     int64
	Quantity      int64
	UnitPrice     types.Money
	PaymentMethod string
	PaymentStatus PaymentStatus
}

// UpdateSaleInput is a partial sale edit; nil fields stay unchanged.
type UpdateSaleInput struct {
	Quantity      *int64
	UnitPrice     *types.Money
	PaymentMethod *string
	PaymentStatus *PaymentStatus
}

// CreatePurchaseInput describes a purchase request.
type CreatePurchaseInput struct {
	ProductID int64
	Quantity  int64
	UnitCost  types.Money
	Supplier  string
}

// UpdatePurchaseInput is a partial purchase edit; nil fields stay unchanged.
type UpdatePurchaseInput struct {
	Quantity *int64
	UnitCost *types.Money
	Supplier *string
}

// AdjustmentInput describes an administrative stock override.
type AdjustmentInput struct {
	ProductID int64
	Delta     int64
	Reason    string
}

// ListFilter narrows sale and purchase listings.
type ListFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Page      int
	PerPage   int
}
