package expense

import (
	"time"

	"github.com/brimstock/brimstock/internal/types"
)

// Expense models one operating cost row. Expenses never touch stock; they
// exist for the expense report and the dashboard.
type Expense struct {
	ID            int64
	Category      string
	Amount        types.Money
	Description   string
	PaymentMethod string
	Actor         string
	SpentAt       time.Time
	CreatedAt     time.Time
}

// CreateInput describes a new expense.
type CreateInput struct {
	Category      string
	Amount        types.Money
	Description   string
	PaymentMethod string
	SpentAt       time.Time
}

// UpdateInput is a partial edit; nil fields stay unchanged.
type UpdateInput struct {
	Category      *string
	Amount        *types.Money
	Description   *string
	PaymentMethod *string
	SpentAt       *time.Time
}

// ListFilter narrows expense listings.
type ListFilter struct {
	Category string
	From     time.Time
	To       time.Time
	Page     int
	PerPage  int
}
