package reporting

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

type fakeRepo struct {
	paid       Aggregate
	pending    Aggregate
	salesPts   []SeriesPoint
	topSales   []ProductStat
	topSoldQty []ProductStat
	methods    []MethodStat
	purchases  Aggregate
	purchPts   []SeriesPoint
	suppliers  []SupplierStat
	topBought  []ProductStat
	stock      []StockItem
	expenses   Aggregate
	expPts     []SeriesPoint
	categories []CategoryShare
	topExp     []ExpenseItem
	pendingCnt int64
	lowStock   int64
}

func (f *fakeRepo) SalesAggregate(ctx context.Context, rng Range, status string) (Aggregate, error) {
	if status == "pending" {
		return f.pending, nil
	}
	return f.paid, nil
}

func (f *fakeRepo) SalesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error) {
	return f.salesPts, nil
}

func (f *fakeRepo) TopProductsBySales(ctx context.Context, rng Range, limit int) ([]ProductStat, error) {
	if limit < len(f.topSales) {
		return f.topSales[:limit], nil
	}
	return f.topSales, nil
}

func (f *fakeRepo) TopProductsBySalesQty(ctx context.Context, rng Range, limit int) ([]ProductStat, error) {
	if limit < len(f.topSoldQty) {
		return f.topSoldQty[:limit], nil
	}
	return f.topSoldQty, nil
}

func (f *fakeRepo) SalesByMethod(ctx context.Context, rng Range) ([]MethodStat, error) {
	return f.methods, nil
}

func (f *fakeRepo) PurchasesAggregate(ctx context.Context, rng Range) (Aggregate, error) {
	return f.purchases, nil
}

func (f *fakeRepo) PurchasesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error) {
	return f.purchPts, nil
}

func (f *fakeRepo) TopSuppliers(ctx context.Context, rng Range, limit int) ([]SupplierStat, error) {
	return f.suppliers, nil
}

func (f *fakeRepo) TopProductsByPurchaseQty(ctx context.Context, rng Range, limit int) ([]ProductStat, error) {
	return f.topBought, nil
}

func (f *fakeRepo) StockItems(ctx context.Context) ([]StockItem, error) {
	return f.stock, nil
}

func (f *fakeRepo) ExpensesAggregate(ctx context.Context, rng Range) (Aggregate, error) {
	return f.expenses, nil
}

func (f *fakeRepo) ExpensesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error) {
	return f.expPts, nil
}

func (f *fakeRepo) ExpensesByCategory(ctx context.Context, rng Range) ([]CategoryShare, error) {
	out := make([]CategoryShare, len(f.categories))
	copy(out, f.categories)
	return out, nil
}

func (f *fakeRepo) TopExpenses(ctx context.Context, rng Range, limit int) ([]ExpenseItem, error) {
	return f.topExp, nil
}

func (f *fakeRepo) PendingSalesCount(ctx context.Context) (int64, error) {
	return f.pendingCnt, nil
}

func (f *fakeRepo) LowStockCount(ctx context.Context) (int64, error) {
	return f.lowStock, nil
}

var fixedNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestEngine(repo *fakeRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, nil, time.UTC, logger)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func augustRange() Range {
	return Range{
		From: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC),
	}
}

func TestSalesReportTotals(t *testing.T) {
	repo := &fakeRepo{
		paid:    Aggregate{Amount: 900_00, Count: 3, Quantity: 9},
		pending: Aggregate{Amount: 120_00, Count: 1, Quantity: 1},
		salesPts: []SeriesPoint{
			{Start: time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC), Amount: 900_00, Count: 3, Quantity: 9},
		},
		topSales: []ProductStat{{ProductID: 1, Name: "Arabica Beans 1kg", Amount: 900_00, Quantity: 9}},
		methods:  []MethodStat{{Method: "cash", Orders: 3, Revenue: 900_00}},
	}
	svc := newTestEngine(repo)

	report, err := svc.SalesReport(context.Background(), augustRange(), GroupByDay)
	require.NoError(t, err)
	require.Equal(t, types.Money(900_00), report.Totals.Revenue)
	require.EqualValues(t, 3, report.Totals.Orders)
	require.Equal(t, types.Money(120_00), report.Totals.PendingRevenue)
	require.EqualValues(t, 1, report.Totals.PendingOrders)
	require.Equal(t, types.Money(300_00), report.Totals.AverageOrderValue)

	// Seven calendar days, ascending, gaps zero-filled.
	require.Len(t, report.Series, 7)
	require.Equal(t, "2026-08-01", report.Series[0].Bucket)
	require.Zero(t, report.Series[0].Amount)
	require.Equal(t, types.Money(900_00), report.Series[1].Amount)
	require.Len(t, report.TopProducts, 1)
	require.Len(t, report.PaymentMethods, 1)
}

func TestSalesReportEmptyRangeAverages(t *testing.T) {
	svc := newTestEngine(&fakeRepo{})

	report, err := svc.SalesReport(context.Background(), augustRange(), GroupByDay)
	require.NoError(t, err)
	require.Zero(t, report.Totals.AverageOrderValue, "no paid orders yields 0, never NaN")
	require.Len(t, report.Series, 7)
}

func TestSalesReportRejectsBadInput(t *testing.T) {
	svc := newTestEngine(&fakeRepo{})

	var validation *shared.ValidationError
	_, err := svc.SalesReport(context.Background(), Range{}, GroupByDay)
	require.ErrorAs(t, err, &validation)

	rng := augustRange()
	_, err = svc.SalesReport(context.Background(), Range{From: rng.To, To: rng.From}, GroupByDay)
	require.ErrorAs(t, err, &validation)

	_, err = svc.SalesReport(context.Background(), rng, GroupBy("hour"))
	require.ErrorAs(t, err, &validation)
}

func TestSalesReportWeekBuckets(t *testing.T) {
	repo := &fakeRepo{
		salesPts: []SeriesPoint{
			{Start: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), Amount: 100_00, Count: 1},
		},
	}
	svc := newTestEngine(repo)

	rng := Range{
		From: time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC),
	}
	report, err := svc.SalesReport(context.Background(), rng, GroupByWeek)
	require.NoError(t, err)
	require.Len(t, report.Series, 2)
	require.Equal(t, "2026-W32", report.Series[0].Bucket)
	require.Equal(t, types.Money(100_00), report.Series[0].Amount)
	require.Equal(t, "2026-W33", report.Series[1].Bucket)
}

func TestPurchasesReport(t *testing.T) {
	repo := &fakeRepo{
		purchases: Aggregate{Amount: 1800_00, Count: 2, Quantity: 30},
		suppliers: []SupplierStat{{Supplier: "Bean Importers", Orders: 2, Spend: 1800_00}},
		topBought: []ProductStat{{ProductID: 1, Name: "Arabica Beans 1kg", Quantity: 30, Amount: 1800_00}},
	}
	svc := newTestEngine(repo)

	report, err := svc.PurchasesReport(context.Background(), augustRange(), GroupByDay)
	require.NoError(t, err)
	require.Equal(t, types.Money(1800_00), report.Totals.Spend)
	require.EqualValues(t, 30, report.Totals.Quantity)
	require.Len(t, report.TopSuppliers, 1)
	require.Len(t, report.TopProducts, 1)
}

func TestStockReportRollups(t *testing.T) {
	repo := &fakeRepo{stock: []StockItem{
		{ProductID: 1, Name: "Arabica Beans 1kg", SKU: "COF-001", Category: "coffee", StockQuantity: 10, CostPrice: 85_00},
		{ProductID: 2, Name: "Robusta Beans 1kg", SKU: "COF-002", Category: "coffee", StockQuantity: 4, CostPrice: 60_00},
		{ProductID: 3, Name: "Paper Cups 50pk", SKU: "SUP-001", Category: "supplies", StockQuantity: 0, CostPrice: 20_00},
	}}
	svc := newTestEngine(repo)

	report, err := svc.StockReport(context.Background())
	require.NoError(t, err)

	require.EqualValues(t, 3, report.Totals.Products)
	require.EqualValues(t, 14, report.Totals.StockQuantity)
	require.Equal(t, types.Money(10*85_00+4*60_00), report.Totals.Value)

	require.Len(t, report.Categories, 2)
	require.Equal(t, "coffee", report.Categories[0].Category)
	require.EqualValues(t, 2, report.Categories[0].Products)

	require.Len(t, report.LowStock, 1)
	require.Equal(t, "COF-002", report.LowStock[0].SKU)
	require.Len(t, report.OutOfStock, 1)
	require.Equal(t, "SUP-001", report.OutOfStock[0].SKU)

	require.True(t, report.Items[1].IsLowStock)
	require.Equal(t, types.Money(4*60_00), report.Items[1].StockValue)

	// A drained product is still flagged low even though it sits in the
	// out-of-stock subset rather than the low-stock one.
	require.True(t, report.Items[2].IsLowStock)
}

func TestExpensesReportPercentages(t *testing.T) {
	repo := &fakeRepo{
		expenses: Aggregate{Amount: 800_00, Count: 4},
		categories: []CategoryShare{
			{Category: "rent", Amount: 600_00, Count: 1},
			{Category: "utilities", Amount: 200_00, Count: 3},
		},
		topExp: []ExpenseItem{{ID: 1, Category: "rent", Amount: 600_00}},
	}
	svc := newTestEngine(repo)

	report, err := svc.ExpensesReport(context.Background(), augustRange(), GroupByDay)
	require.NoError(t, err)
	require.InDelta(t, 75.0, report.Categories[0].Percent, 0.001)
	require.InDelta(t, 25.0, report.Categories[1].Percent, 0.001)

	// Trend is always the trailing six calendar months.
	require.Len(t, report.Trend, 6)
	require.Equal(t, "2026-03", report.Trend[0].Bucket)
	require.Equal(t, "2026-08", report.Trend[5].Bucket)
}

func TestExpensesReportZeroTotal(t *testing.T) {
	repo := &fakeRepo{
		categories: []CategoryShare{{Category: "rent", Amount: 0, Count: 0}},
	}
	svc := newTestEngine(repo)

	report, err := svc.ExpensesReport(context.Background(), augustRange(), GroupByDay)
	require.NoError(t, err)
	require.Zero(t, report.Categories[0].Percent)
}

func TestDashboard(t *testing.T) {
	repo := &fakeRepo{
		paid:       Aggregate{Amount: 360_00, Count: 3, Quantity: 3},
		topSoldQty: []ProductStat{{ProductID: 1, Name: "Arabica Beans 1kg", Quantity: 3, Amount: 360_00}},
		lowStock:   2,
		pendingCnt: 1,
	}
	svc := newTestEngine(repo)

	summary, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.Money(360_00), summary.TodayRevenue)
	require.EqualValues(t, 3, summary.TodayOrders)
	require.NotNil(t, summary.TopProduct)
	require.Equal(t, "Arabica Beans 1kg", summary.TopProduct.Name)
	require.EqualValues(t, 2, summary.LowStockCount)
	require.EqualValues(t, 1, summary.PendingSales)
	require.Len(t, summary.RevenueSeries, 30)
}

func TestDashboardTopProductRankedByQuantity(t *testing.T) {
	bulk := ProductStat{ProductID: 1, Name: "Paper Cup 12oz (50pk)", Quantity: 10, Amount: 1_00}
	grinder := ProductStat{ProductID: 2, Name: "Espresso Grinder", Quantity: 1, Amount: 500_00}
	repo := &fakeRepo{
		topSales:   []ProductStat{grinder, bulk},
		topSoldQty: []ProductStat{bulk, grinder},
	}
	svc := newTestEngine(repo)

	summary, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary.TopProduct)
	require.Equal(t, bulk, *summary.TopProduct)
}

func TestDashboardNoSalesToday(t *testing.T) {
	svc := newTestEngine(&fakeRepo{})

	summary, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	require.Nil(t, summary.TopProduct)
	require.Zero(t, summary.TodayRevenue)
}
