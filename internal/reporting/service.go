package reporting

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brimstock/brimstock/internal/catalog"
	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

// RepositoryPort provides the aggregate queries the engine composes.
type RepositoryPort interface {
	SalesAggregate(ctx context.Context, rng Range, status string) (Aggregate, error)
	SalesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error)
	TopProductsBySales(ctx context.Context, rng Range, limit int) ([]ProductStat, error)
	TopProductsBySalesQty(ctx context.Context, rng Range, limit int) ([]ProductStat, error)
	SalesByMethod(ctx context.Context, rng Range) ([]MethodStat, error)
	PurchasesAggregate(ctx context.Context, rng Range) (Aggregate, error)
	PurchasesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error)
	TopSuppliers(ctx context.Context, rng Range, limit int) ([]SupplierStat, error)
	TopProductsByPurchaseQty(ctx context.Context, rng Range, limit int) ([]ProductStat, error)
	StockItems(ctx context.Context) ([]StockItem, error)
	ExpensesAggregate(ctx context.Context, rng Range) (Aggregate, error)
	ExpensesSeries(ctx context.Context, rng Range, unit string) ([]SeriesPoint, error)
	ExpensesByCategory(ctx context.Context, rng Range) ([]CategoryShare, error)
	TopExpenses(ctx context.Context, rng Range, limit int) ([]ExpenseItem, error)
	PendingSalesCount(ctx context.Context) (int64, error)
	LowStockCount(ctx context.Context) (int64, error)
}

// Service is the read-only reporting engine. It never writes; every report
// reflects committed state at query time (or a cached copy no older than
// the last ledger commit, since commits bump the cache version).
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds the engine. loc is the organization timezone used for
// calendar bucketing; nil means UTC.
func NewService(repo RepositoryPort, cache *Cache, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, cache: cache, loc: loc, logger: logger, now: time.Now}
}

// SalesReport builds the sales view for one range. The independent aggregate
// passes run concurrently; paid and pending totals never share a query.
func (s *Service) SalesReport(ctx context.Context, rng Range, groupBy GroupBy) (SalesReport, error) {
	if err := validateRange(rng); err != nil {
		return SalesReport{}, err
	}
	if !groupBy.Valid() {
		return SalesReport{}, shared.Validationf("reporting: group_by must be day, week or month")
	}
	key, err := s.cache.BuildKey(ctx, "sales", rangeToken(rng), string(groupBy))
	if err != nil {
		return SalesReport{}, err
	}
	var report SalesReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.buildSalesReport(ctx, rng, groupBy)
	})
	return report, err
}

func (s *Service) buildSalesReport(ctx context.Context, rng Range, groupBy GroupBy) (SalesReport, error) {
	var (
		paid    Aggregate
		pending Aggregate
		points  []SeriesPoint
		top     []ProductStat
		methods []MethodStat
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		paid, err = s.repo.SalesAggregate(ctx, rng, "paid")
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.repo.SalesAggregate(ctx, rng, "pending")
		return err
	})
	g.Go(func() (err error) {
		points, err = s.repo.SalesSeries(ctx, rng, string(groupBy))
		return err
	})
	g.Go(func() (err error) {
		top, err = s.repo.TopProductsBySales(ctx, rng, 10)
		return err
	})
	g.Go(func() (err error) {
		methods, err = s.repo.SalesByMethod(ctx, rng)
		return err
	})
	if err := g.Wait(); err != nil {
		return SalesReport{}, err
	}

	return SalesReport{
		Totals: SalesTotals{
			Revenue:           paid.Amount,
			Orders:            paid.Count,
			Quantity:          paid.Quantity,
			PendingRevenue:    pending.Amount,
			PendingOrders:     pending.Count,
			AverageOrderValue: paid.Amount.DivRound(paid.Count),
		},
		Series:         s.fill(points, rng, groupBy),
		TopProducts:    top,
		PaymentMethods: methods,
	}, nil
}

// PurchasesReport builds the purchase view for one range.
func (s *Service) PurchasesReport(ctx context.Context, rng Range, groupBy GroupBy) (PurchasesReport, error) {
	if err := validateRange(rng); err != nil {
		return PurchasesReport{}, err
	}
	if !groupBy.Valid() {
		return PurchasesReport{}, shared.Validationf("reporting: group_by must be day, week or month")
	}
	key, err := s.cache.BuildKey(ctx, "purchases", rangeToken(rng), string(groupBy))
	if err != nil {
		return PurchasesReport{}, err
	}
	var report PurchasesReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.buildPurchasesReport(ctx, rng, groupBy)
	})
	return report, err
}

func (s *Service) buildPurchasesReport(ctx context.Context, rng Range, groupBy GroupBy) (PurchasesReport, error) {
	var (
		totals    Aggregate
		points    []SeriesPoint
		suppliers []SupplierStat
		products  []ProductStat
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.repo.PurchasesAggregate(ctx, rng)
		return err
	})
	g.Go(func() (err error) {
		points, err = s.repo.PurchasesSeries(ctx, rng, string(groupBy))
		return err
	})
	g.Go(func() (err error) {
		suppliers, err = s.repo.TopSuppliers(ctx, rng, 10)
		return err
	})
	g.Go(func() (err error) {
		products, err = s.repo.TopProductsByPurchaseQty(ctx, rng, 10)
		return err
	})
	if err := g.Wait(); err != nil {
		return PurchasesReport{}, err
	}

	return PurchasesReport{
		Totals:       PurchaseTotals{Spend: totals.Amount, Orders: totals.Count, Quantity: totals.Quantity},
		Series:       s.fill(points, rng, groupBy),
		TopSuppliers: suppliers,
		TopProducts:  products,
	}, nil
}

// StockReport builds the point-in-time stock view from the catalog.
func (s *Service) StockReport(ctx context.Context) (StockReport, error) {
	key, err := s.cache.BuildKey(ctx, "stock")
	if err != nil {
		return StockReport{}, err
	}
	var report StockReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.buildStockReport(ctx)
	})
	return report, err
}

func (s *Service) buildStockReport(ctx context.Context) (StockReport, error) {
	items, err := s.repo.StockItems(ctx)
	if err != nil {
		return StockReport{}, err
	}

	report := StockReport{Items: make([]StockItem, 0, len(items))}
	rollups := make(map[string]*CategoryRollup)
	var order []string
	for _, item := range items {
		item.StockValue = item.CostPrice.Mul(item.StockQuantity)
		item.IsLowStock = item.StockQuantity <= catalog.LowStockThreshold
		report.Items = append(report.Items, item)

		report.Totals.Products++
		report.Totals.StockQuantity += item.StockQuantity
		report.Totals.Value += item.StockValue

		roll, ok := rollups[item.Category]
		if !ok {
			roll = &CategoryRollup{Category: item.Category}
			rollups[item.Category] = roll
			order = append(order, item.Category)
		}
		roll.Products++
		roll.StockQuantity += item.StockQuantity
		roll.Value += item.StockValue

		switch {
		case item.StockQuantity == 0:
			report.OutOfStock = append(report.OutOfStock, item)
		case item.StockQuantity <= catalog.LowStockThreshold:
			report.LowStock = append(report.LowStock, item)
		}
	}
	for _, category := range order {
		report.Categories = append(report.Categories, *rollups[category])
	}
	return report, nil
}

// ExpensesReport builds the expense view for one range. The trend covers the
// trailing six calendar months whatever the requested range is.
func (s *Service) ExpensesReport(ctx context.Context, rng Range, groupBy GroupBy) (ExpensesReport, error) {
	if err := validateRange(rng); err != nil {
		return ExpensesReport{}, err
	}
	if !groupBy.Valid() {
		return ExpensesReport{}, shared.Validationf("reporting: group_by must be day, week or month")
	}
	key, err := s.cache.BuildKey(ctx, "expenses", rangeToken(rng), string(groupBy))
	if err != nil {
		return ExpensesReport{}, err
	}
	var report ExpensesReport
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
		return s.buildExpensesReport(ctx, rng, groupBy)
	})
	return report, err
}

func (s *Service) buildExpensesReport(ctx context.Context, rng Range, groupBy GroupBy) (ExpensesReport, error) {
	trendRange := LastNMonths(s.now(), 6, s.loc)
	var (
		totals     Aggregate
		points     []SeriesPoint
		categories []CategoryShare
		top        []ExpenseItem
		trend      []SeriesPoint
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = s.repo.ExpensesAggregate(ctx, rng)
		return err
	})
	g.Go(func() (err error) {
		points, err = s.repo.ExpensesSeries(ctx, rng, string(groupBy))
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.repo.ExpensesByCategory(ctx, rng)
		return err
	})
	g.Go(func() (err error) {
		top, err = s.repo.TopExpenses(ctx, rng, 5)
		return err
	})
	g.Go(func() (err error) {
		trend, err = s.repo.ExpensesSeries(ctx, trendRange, string(GroupByMonth))
		return err
	})
	if err := g.Wait(); err != nil {
		return ExpensesReport{}, err
	}

	for i := range categories {
		categories[i].Percent = types.Percent(categories[i].Amount, totals.Amount)
	}
	return ExpensesReport{
		Totals:      ExpenseTotals{Amount: totals.Amount, Count: totals.Count},
		Series:      s.fill(points, rng, groupBy),
		Categories:  categories,
		TopExpenses: top,
		Trend:       s.fill(trend, trendRange, GroupByMonth),
	}, nil
}

// Dashboard builds the at-a-glance operational summary.
func (s *Service) Dashboard(ctx context.Context) (DashboardSummary, error) {
	today := DayRange(s.now(), s.loc)
	key, err := s.cache.BuildKey(ctx, "dashboard", today.From.Format("2006-01-02"))
	if err != nil {
		return DashboardSummary{}, err
	}
	var summary DashboardSummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		return s.buildDashboard(ctx, today)
	})
	return summary, err
}

func (s *Service) buildDashboard(ctx context.Context, today Range) (DashboardSummary, error) {
	trailing := LastNDays(s.now(), 30, s.loc)
	var (
		paidToday Aggregate
		top       []ProductStat
		lowStock  int64
		pending   int64
		series    []SeriesPoint
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		paidToday, err = s.repo.SalesAggregate(ctx, today, "paid")
		return err
	})
	g.Go(func() (err error) {
		top, err = s.repo.TopProductsBySalesQty(ctx, today, 1)
		return err
	})
	g.Go(func() (err error) {
		lowStock, err = s.repo.LowStockCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		pending, err = s.repo.PendingSalesCount(ctx)
		return err
	})
	g.Go(func() (err error) {
		series, err = s.repo.SalesSeries(ctx, trailing, string(GroupByDay))
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardSummary{}, err
	}

	summary := DashboardSummary{
		TodayRevenue:  paidToday.Amount,
		TodayOrders:   paidToday.Count,
		LowStockCount: lowStock,
		PendingSales:  pending,
		RevenueSeries: s.fill(series, trailing, GroupByDay),
	}
	if len(top) > 0 {
		summary.TopProduct = &top[0]
	}
	return summary, nil
}

func (s *Service) fill(points []SeriesPoint, rng Range, groupBy GroupBy) []TimeBucket {
	buckets := make([]TimeBucket, 0, len(points))
	for _, p := range points {
		buckets = append(buckets, TimeBucket{
			Bucket:   BucketKey(p.Start, groupBy, s.loc),
			Amount:   p.Amount,
			Count:    p.Count,
			Quantity: p.Quantity,
		})
	}
	return FillSeries(buckets, rng.From, rng.To, groupBy, s.loc)
}

func validateRange(rng Range) error {
	if rng.From.IsZero() || rng.To.IsZero() || !rng.From.Before(rng.To) {
		return shared.Validationf("reporting: range requires from < to")
	}
	return nil
}
