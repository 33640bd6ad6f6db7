package reporting

import (
	"time"

	"github.com/brimstock/brimstock/internal/types"
)

// Range bounds a report query. From is inclusive, To exclusive.
type Range struct {
	From time.Time
	To   time.Time
}

// SalesTotals aggregates one range. Paid and pending are computed in two
// independent passes; AverageOrderValue is 0 when there are no paid orders.
type SalesTotals struct {
	Revenue           types.Money `json:"revenue"`
	Orders            int64       `json:"orders"`
	Quantity          int64       `json:"quantity"`
	PendingRevenue    types.Money `json:"pendingRevenue"`
	PendingOrders     int64       `json:"pendingOrders"`
	AverageOrderValue types.Money `json:"averageOrderValue"`
}

// TimeBucket is one calendar-bucketed point in an ascending series.
type TimeBucket struct {
	Bucket   string      `json:"bucket"`
	Amount   types.Money `json:"amount"`
	Count    int64       `json:"count"`
	Quantity int64       `json:"quantity,omitempty"`
}

// ProductStat ranks a product inside a report.
type ProductStat struct {
	ProductID int64       `json:"productId"`
	Name      string      `json:"name"`
	SKU       string      `json:"sku"`
	Quantity  int64       `json:"quantity"`
	Amount    types.Money `json:"amount"`
}

// MethodStat breaks paid sales down by payment method.
type MethodStat struct {
	Method  string      `json:"method"`
	Orders  int64       `json:"orders"`
	Revenue types.Money `json:"revenue"`
}

// SalesReport is the full sales view for one range.
type SalesReport struct {
	Totals         SalesTotals   `json:"totals"`
	Series         []TimeBucket  `json:"series"`
	TopProducts    []ProductStat `json:"topProducts"`
	PaymentMethods []MethodStat  `json:"paymentMethods"`
}

// PurchaseTotals aggregates purchase spend over one range.
type PurchaseTotals struct {
	Spend    types.Money `json:"spend"`
	Orders   int64       `json:"orders"`
	Quantity int64       `json:"quantity"`
}

// SupplierStat ranks a supplier by spend.
type SupplierStat struct {
	Supplier string      `json:"supplier"`
	Orders   int64       `json:"orders"`
	Spend    types.Money `json:"spend"`
}

// PurchasesReport is the full purchase view for one range.
type PurchasesReport struct {
	Totals       PurchaseTotals `json:"totals"`
	Series       []TimeBucket   `json:"series"`
	TopSuppliers []SupplierStat `json:"topSuppliers"`
	TopProducts  []ProductStat  `json:"topProducts"`
}

// StockItem is one catalog row annotated for the stock report.
type StockItem struct {
	ProductID     int64       `json:"productId"`
	Name          string      `json:"name"`
	SKU           string      `json:"sku"`
	Category      string      `json:"category"`
	StockQuantity int64       `json:"stockQuantity"`
	CostPrice     types.Money `json:"costPrice"`
	StockValue    types.Money `json:"stockValue"`
	IsLowStock    bool        `json:"isLowStock"`
}

// CategoryRollup aggregates the catalog per category.
type CategoryRollup struct {
	Category      string      `json:"category"`
	Products      int64       `json:"products"`
	StockQuantity int64       `json:"stockQuantity"`
	Value         types.Money `json:"value"`
}

// StockTotals is the global catalog rollup.
type StockTotals struct {
	Products      int64       `json:"products"`
	StockQuantity int64       `json:"stockQuantity"`
	Value         types.Money `json:"value"`
}

// StockReport is the point-in-time stock view.
type StockReport struct {
	Totals     StockTotals      `json:"totals"`
	Categories []CategoryRollup `json:"categories"`
	LowStock   []StockItem      `json:"lowStock"`
	OutOfStock []StockItem      `json:"outOfStock"`
	Items      []StockItem      `json:"items"`
}

// ExpenseTotals aggregates expenses over one range.
type ExpenseTotals struct {
	Amount types.Money `json:"amount"`
	Count  int64       `json:"count"`
}

// CategoryShare is one slice of the expense category breakdown. Percent is
// rounded to two decimals and 0 when the range total is 0.
type CategoryShare struct {
	Category string      `json:"category"`
	Amount   types.Money `json:"amount"`
	Count    int64       `json:"count"`
	Percent  float64     `json:"percent"`
}

// ExpenseItem is one ranked expense row.
type ExpenseItem struct {
	ID       int64       `json:"id"`
	Category string      `json:"category"`
	Amount   types.Money `json:"amount"`
	SpentAt  time.Time   `json:"spentAt"`
}

// ExpensesReport is the full expense view for one range. Trend always covers
// the trailing six calendar months regardless of the requested range.
type ExpensesReport struct {
	Totals      ExpenseTotals   `json:"totals"`
	Series      []TimeBucket    `json:"series"`
	Categories  []CategoryShare `json:"categories"`
	TopExpenses []ExpenseItem   `json:"topExpenses"`
	Trend       []TimeBucket    `json:"trend"`
}

// DashboardSummary is the operational at-a-glance view. "Today" is the
// calendar day in the organization's configured timezone.
type DashboardSummary struct {
	TodayRevenue  types.Money  `json:"todayRevenue"`
	TodayOrders   int64        `json:"todayOrders"`
	TopProduct    *ProductStat `json:"topProduct,omitempty"`
	LowStockCount int64        `json:"lowStockCount"`
	PendingSales  int64        `json:"pendingSales"`
	RevenueSeries []TimeBucket `json:"revenueSeries"`
}
