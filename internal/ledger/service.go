package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/brimstock/brimstock/internal/catalog"
	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

// RepositoryPort abstracts repository usage for the recorder.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	GetPurchase(ctx context.Context, id int64) (Purchase, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error)
	ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, int, error)
	ListAdjustments(ctx context.Context, filter ListFilter) ([]Adjustment, int, error)
}

// TxRepository exposes the operations available inside one atomic scope.
// The product row is locked for the duration, so the stock check and the
// stock write cannot interleave with a concurrent mutation.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, id int64) (catalog.Product, error)
	SetProductStock(ctx context.Context, id int64, qty int64) error
	SetProductCost(ctx context.Context, id int64, cost types.Money) error
	InsertSale(ctx context.Context, sale Sale) (Sale, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	UpdateSale(ctx context.Context, sale Sale) error
	DeleteSale(ctx context.Context, id int64) error
	InsertPurchase(ctx context.Context, purchase Purchase) (Purchase, error)
	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	UpdatePurchase(ctx context.Context, purchase Purchase) error
	DeletePurchase(ctx context.Context, id int64) error
	InsertAdjustment(ctx context.Context, adj Adjustment) (Adjustment, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// TxTimeout bounds how long one atomic scope may hold the product lock.
	TxTimeout time.Duration
}

// Service is the only path that changes stock as a byproduct of sale and
// purchase events. Audit, cache invalidation, and notification fan-out run
// strictly after commit and never affect the committed change.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	notifier  NotifierPort
	cache     CachePort
	logger    *slog.Logger
	txTimeout time.Duration
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, notifier NotifierPort, cache CachePort, logger *slog.Logger, cfg ServiceConfig) *Service {
	timeout := cfg.TxTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{repo: repo, audit: audit, notifier: notifier, cache: cache, logger: logger, txTimeout: timeout}
}

// CreateSale records a sale and decrements stock in one atomic scope.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput, actor shared.Actor) (Sale, error) {
	if input.ProductID <= 0 {
		return Sale{}, shared.Validationf("ledger: product required")
	}
	if input.Quantity < 1 {
		return Sale{}, shared.Validationf("ledger: quantity must be >= 1")
	}
	if input.UnitPrice < 0 {
		return Sale{}, shared.Validationf("ledger: unit price must be >= 0")
	}
	if input.PaymentMethod == "" {
		return Sale{}, shared.Validationf("ledger: payment method required")
	}
	status := input.PaymentStatus
	if status == "" {
		status = PaymentStatusPaid
	}
	if !status.Valid() {
		return Sale{}, shared.Validationf("ledger: payment status must be paid or pending")
	}

	var (
		sale      Sale
		prevStock int64
		newStock  int64
	)
	err := s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product.StockQuantity < input.Quantity {
			return &shared.InsufficientStockError{ProductID: product.ID, Available: product.StockQuantity, Requested: input.Quantity}
		}
		sale = Sale{
			ProductID:     product.ID,
			Snapshot:      snapshotOf(product),
			Quantity:      input.Quantity,
			UnitPrice:     input.UnitPrice,
			TotalPrice:    input.UnitPrice.Mul(input.Quantity),
			PaymentMethod: input.PaymentMethod,
			PaymentStatus: status,
			Actor:         actor.Name,
			OccurredAt:    time.Now().UTC(),
		}
		sale, err = tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		prevStock = product.StockQuantity
		newStock = product.StockQuantity - input.Quantity
		return tx.SetProductStock(ctx, product.ID, newStock)
	})
	if err != nil {
		return Sale{}, err
	}

	s.afterCommit(ctx, commitEffects{
		action:   "create_sale",
		entity:   "sale",
		entityID: sale.ID,
		actor:    actor,
		meta: map[string]any{
			"product_id": sale.ProductID,
			"sku":        sale.Snapshot.SKU,
			"quantity":   sale.Quantity,
			"total":      int64(sale.TotalPrice),
		},
		snapshot:  sale.Snapshot,
		prevStock: prevStock,
		newStock:  newStock,
		notify: func(ctx context.Context) error {
			return s.notifier.FanOutSale(ctx, sale.Snapshot.Name, sale.Quantity, sale.TotalPrice, actor.Name)
		},
	})
	return sale, nil
}

// CreatePurchase records a purchase, increments stock, and overwrites the
// product cost price with the new unit cost.
func (s *Service) CreatePurchase(ctx context.Context, input CreatePurchaseInput, actor shared.Actor) (Purchase, error) {
	if input.ProductID <= 0 {
		return Purchase{}, shared.Validationf("ledger: product required")
	}
	if input.Quantity < 1 {
		return Purchase{}, shared.Validationf("ledger: quantity must be >= 1")
	}
	if input.UnitCost < 0 {
		return Purchase{}, shared.Validationf("ledger: unit cost must be >= 0")
	}
	if input.Supplier == "" {
		return Purchase{}, shared.Validationf("ledger: supplier required")
	}

	var purchase Purchase
	err := s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		purchase = Purchase{
			ProductID:  product.ID,
			Snapshot:   purchaseSnapshotOf(product),
			Quantity:   input.Quantity,
			UnitCost:   input.UnitCost,
			TotalCost:  input.UnitCost.Mul(input.Quantity),
			Supplier:   input.Supplier,
			Actor:      actor.Name,
			OccurredAt: time.Now().UTC(),
		}
		purchase, err = tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		if err := tx.SetProductStock(ctx, product.ID, product.StockQuantity+input.Quantity); err != nil {
			return err
		}
		return tx.SetProductCost(ctx, product.ID, input.UnitCost)
	})
	if err != nil {
		return Purchase{}, err
	}

	s.afterCommit(ctx, commitEffects{
		action:   "create_purchase",
		entity:   "purchase",
		entityID: purchase.ID,
		actor:    actor,
		meta: map[string]any{
			"product_id": purchase.ProductID,
			"sku":        purchase.Snapshot.SKU,
			"quantity":   purchase.Quantity,
			"total":      int64(purchase.TotalCost),
			"supplier":   purchase.Supplier,
		},
		notify: func(ctx context.Context) error {
			return s.notifier.FanOutPurchase(ctx, purchase.Snapshot.Name, purchase.Supplier, purchase.Quantity, purchase.TotalCost, actor.Name)
		},
	})
	return purchase, nil
}

// UpdateSale edits a sale inside one atomic scope: the prior stock effect is
// reversed, the new quantity is validated against the resulting stock, and
// the new delta is applied. Omitted fields stay unchanged.
func (s *Service) UpdateSale(ctx context.Context, id int64, patch UpdateSaleInput, actor shared.Actor) (Sale, error) {
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return Sale{}, shared.Validationf("ledger: quantity must be >= 1")
	}
	if patch.UnitPrice != nil && *patch.UnitPrice < 0 {
		return Sale{}, shared.Validationf("ledger: unit price must be >= 0")
	}
	if patch.PaymentMethod != nil && *patch.PaymentMethod == "" {
		return Sale{}, shared.Validationf("ledger: payment method required")
	}
	if patch.PaymentStatus != nil && !patch.PaymentStatus.Valid() {
		return Sale{}, shared.Validationf("ledger: payment status must be paid or pending")
	}

	var (
		sale       Sale
		prevStock  int64
		newStock   int64
		stockMoved bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		sale, err = tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		newQty := sale.Quantity
		if patch.Quantity != nil {
			newQty = *patch.Quantity
		}

		product, err := tx.GetProductForUpdate(ctx, sale.ProductID)
		switch {
		case err == nil:
			available := product.StockQuantity + sale.Quantity
			if available < newQty {
				return &shared.InsufficientStockError{ProductID: product.ID, Available: available, Requested: newQty}
			}
			prevStock = product.StockQuantity
			newStock = available - newQty
			if newStock != product.StockQuantity {
				if err := tx.SetProductStock(ctx, product.ID, newStock); err != nil {
					return err
				}
				stockMoved = true
			}
		case isNotFound(err):
			// Product deleted since the sale: the row is frozen on its
			// snapshot and quantity can no longer be re-balanced.
			if newQty != sale.Quantity {
				return err
			}
		default:
			return err
		}

		sale.Quantity = newQty
		if patch.UnitPrice != nil {
			sale.UnitPrice = *patch.UnitPrice
		}
		if patch.PaymentMethod != nil {
			sale.PaymentMethod = *patch.PaymentMethod
		}
		if patch.PaymentStatus != nil {
			sale.PaymentStatus = *patch.PaymentStatus
		}
		sale.TotalPrice = sale.UnitPrice.Mul(sale.Quantity)
		return tx.UpdateSale(ctx, sale)
	})
	if err != nil {
		return Sale{}, err
	}

	fx := commitEffects{
		action:   "update_sale",
		entity:   "sale",
		entityID: sale.ID,
		actor:    actor,
		meta: map[string]any{
			"product_id": sale.ProductID,
			"quantity":   sale.Quantity,
			"total":      int64(sale.TotalPrice),
		},
	}
	if stockMoved {
		fx.snapshot = sale.Snapshot
		fx.prevStock = prevStock
		fx.newStock = newStock
	}
	s.afterCommit(ctx, fx)
	return sale, nil
}

// UpdatePurchase mirrors UpdateSale for the inbound side.
func (s *Service) UpdatePurchase(ctx context.Context, id int64, patch UpdatePurchaseInput, actor shared.Actor) (Purchase, error) {
	if patch.Quantity != nil && *patch.Quantity < 1 {
		return Purchase{}, shared.Validationf("ledger: quantity must be >= 1")
	}
	if patch.UnitCost != nil && *patch.UnitCost < 0 {
		return Purchase{}, shared.Validationf("ledger: unit cost must be >= 0")
	}
	if patch.Supplier != nil && *patch.Supplier == "" {
		return Purchase{}, shared.Validationf("ledger: supplier required")
	}

	var (
		purchase   Purchase
		prevStock  int64
		newStock   int64
		stockMoved bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		purchase, err = tx.GetPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		newQty := purchase.Quantity
		if patch.Quantity != nil {
			newQty = *patch.Quantity
		}

		product, err := tx.GetProductForUpdate(ctx, purchase.ProductID)
		switch {
		case err == nil:
			// Reversing the purchase subtracts its quantity; reject edits
			// whose reversal would drive stock negative.
			reversed := product.StockQuantity - purchase.Quantity
			if reversed+newQty < 0 {
				return &shared.InsufficientStockError{ProductID: product.ID, Available: product.StockQuantity, Requested: purchase.Quantity}
			}
			prevStock = product.StockQuantity
			newStock = reversed + newQty
			if newStock != product.StockQuantity {
				if err := tx.SetProductStock(ctx, product.ID, newStock); err != nil {
					return err
				}
				stockMoved = true
			}
		case isNotFound(err):
			if newQty != purchase.Quantity {
				return err
			}
		default:
			return err
		}

		purchase.Quantity = newQty
		if patch.UnitCost != nil {
			purchase.UnitCost = *patch.UnitCost
		}
		if patch.Supplier != nil {
			purchase.Supplier = *patch.Supplier
		}
		purchase.TotalCost = purchase.UnitCost.Mul(purchase.Quantity)
		return tx.UpdatePurchase(ctx, purchase)
	})
	if err != nil {
		return Purchase{}, err
	}

	fx := commitEffects{
		action:   "update_purchase",
		entity:   "purchase",
		entityID: purchase.ID,
		actor:    actor,
		meta: map[string]any{
			"product_id": purchase.ProductID,
			"quantity":   purchase.Quantity,
			"total":      int64(purchase.TotalCost),
		},
	}
	if stockMoved {
		fx.snapshot = purchase.Snapshot
		fx.prevStock = prevStock
		fx.newStock = newStock
	}
	s.afterCommit(ctx, fx)
	return purchase, nil
}

// DeleteSale removes the row and returns its quantity to stock atomically.
func (s *Service) DeleteSale(ctx context.Context, id int64, actor shared.Actor) error {
	var sale Sale
	err := s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		sale, err = tx.GetSaleForUpdate(ctx, id)
		if err != nil {
			return err
		}
		product, err := tx.GetProductForUpdate(ctx, sale.ProductID)
		switch {
		case err == nil:
			if err := tx.SetProductStock(ctx, product.ID, product.StockQuantity+sale.Quantity); err != nil {
				return err
			}
		case isNotFound(err):
			// Dangling reference: nothing to restore.
		default:
			return err
		}
		return tx.DeleteSale(ctx, id)
	})
	if err != nil {
		return err
	}
	s.afterCommit(ctx, commitEffects{
		action:   "delete_sale",
		entity:   "sale",
		entityID: id,
		actor:    actor,
		meta:     map[string]any{"product_id": sale.ProductID, "quantity": sale.Quantity},
	})
	return nil
}

// DeletePurchase removes the row and subtracts its quantity from stock. The
// deletion is rejected when intervening sales already consumed those units.
func (s *Service) DeletePurchase(ctx context.Context, id int64, actor shared.Actor) error {
	var (
		purchase  Purchase
		prevStock int64
		newStock  int64
		tracked   bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		purchase, err = tx.GetPurchaseForUpdate(ctx, id)
		if err != nil {
			return err
		}
		product, err := tx.GetProductForUpdate(ctx, purchase.ProductID)
		switch {
		case err == nil:
			if product.StockQuantity < purchase.Quantity {
				return &shared.InsufficientStockError{ProductID: product.ID, Available: product.StockQuantity, Requested: purchase.Quantity}
			}
			prevStock = product.StockQuantity
			newStock = product.StockQuantity - purchase.Quantity
			tracked = true
			if err := tx.SetProductStock(ctx, product.ID, newStock); err != nil {
				return err
			}
		case isNotFound(err):
		default:
			return err
		}
		return tx.DeletePurchase(ctx, id)
	})
	if err != nil {
		return err
	}
	fx := commitEffects{
		action:   "delete_purchase",
		entity:   "purchase",
		entityID: id,
		actor:    actor,
		meta:     map[string]any{"product_id": purchase.ProductID, "quantity": purchase.Quantity},
	}
	if tracked {
		fx.snapshot = purchase.Snapshot
		fx.prevStock = prevStock
		fx.newStock = newStock
	}
	s.afterCommit(ctx, fx)
	return nil
}

// PostAdjustment records an administrative stock override as a ledger row,
// so the counter stays reconstructible from history.
func (s *Service) PostAdjustment(ctx context.Context, input AdjustmentInput, actor shared.Actor) (Adjustment, error) {
	if input.ProductID <= 0 {
		return Adjustment{}, shared.Validationf("ledger: product required")
	}
	if input.Delta == 0 {
		return Adjustment{}, shared.Validationf("ledger: delta must be non-zero")
	}
	if input.Reason == "" {
		return Adjustment{}, shared.Validationf("ledger: reason required")
	}

	var (
		adj       Adjustment
		prevStock int64
		newStock  int64
	)
	err := s.inTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		prevStock = product.StockQuantity
		newStock = product.StockQuantity + input.Delta
		if newStock < 0 {
			return &shared.InsufficientStockError{ProductID: product.ID, Available: product.StockQuantity, Requested: -input.Delta}
		}
		adj = Adjustment{
			ProductID:  product.ID,
			Snapshot:   purchaseSnapshotOf(product),
			Delta:      input.Delta,
			Reason:     input.Reason,
			Actor:      actor.Name,
			OccurredAt: time.Now().UTC(),
		}
		adj, err = tx.InsertAdjustment(ctx, adj)
		if err != nil {
			return err
		}
		return tx.SetProductStock(ctx, product.ID, newStock)
	})
	if err != nil {
		return Adjustment{}, err
	}

	s.afterCommit(ctx, commitEffects{
		action:    "stock_adjustment",
		entity:    "adjustment",
		entityID:  adj.ID,
		actor:     actor,
		meta:      map[string]any{"product_id": adj.ProductID, "delta": adj.Delta, "reason": adj.Reason},
		snapshot:  adj.Snapshot,
		prevStock: prevStock,
		newStock:  newStock,
	})
	return adj, nil
}

// GetSale fetches one sale row.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// GetPurchase fetches one purchase row.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

// ListSales returns a sale page newest-first.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error) {
	sales, total, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return sales, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// ListPurchases returns a purchase page newest-first.
func (s *Service) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, shared.Pagination, error) {
	purchases, total, err := s.repo.ListPurchases(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return purchases, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// ListAdjustments returns an adjustment page newest-first.
func (s *Service) ListAdjustments(ctx context.Context, filter ListFilter) ([]Adjustment, shared.Pagination, error) {
	adjustments, total, err := s.repo.ListAdjustments(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return adjustments, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// inTx runs fn in one bounded atomic scope. A deadline hit while the scope is
// open aborts cleanly: nothing persists and the caller may retry.
func (s *Service) inTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()
	err := s.repo.WithTx(txCtx, fn)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return &shared.TransactionAbortError{Err: err}
	}
	return err
}

// commitEffects captures everything that happens after a successful commit.
type commitEffects struct {
	action    string
	entity    string
	entityID  int64
	actor     shared.Actor
	meta      map[string]any
	snapshot  ProductSnapshot
	prevStock int64
	newStock  int64
	notify    func(context.Context) error
}

// afterCommit runs the best-effort side effects. Failures are logged and
// never surfaced: the ledger change is already committed.
func (s *Service) afterCommit(ctx context.Context, fx commitEffects) {
	ctx = context.WithoutCancel(ctx)

	if s.audit != nil {
		entry := shared.AuditEntry{
			Actor:    fx.actor.Name,
			Action:   fx.action,
			Entity:   fx.entity,
			EntityID: formatID(fx.entityID),
			Meta:     fx.meta,
		}
		if err := s.audit.Record(ctx, entry); err != nil {
			s.logger.Warn("ledger: audit record failed", slog.String("action", fx.action), slog.Any("error", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("ledger: report cache bump failed", slog.Any("error", err))
		}
	}
	if s.notifier == nil {
		return
	}
	if fx.notify != nil {
		if err := fx.notify(ctx); err != nil {
			s.logger.Warn("ledger: notification fan-out failed", slog.String("action", fx.action), slog.Any("error", err))
		}
	}
	lowStock := fx.newStock > 0 && fx.newStock <= catalog.LowStockThreshold && fx.newStock < fx.prevStock
	if lowStock {
		if err := s.notifier.FanOutLowStock(ctx, fx.snapshot.Name, fx.snapshot.SKU, fx.newStock); err != nil {
			s.logger.Warn("ledger: low stock fan-out failed", slog.Any("error", err))
		}
	}
}

func snapshotOf(p catalog.Product) ProductSnapshot {
	return ProductSnapshot{Name: p.Name, SKU: p.SKU, Price: p.SellingPrice}
}

// purchaseSnapshotOf freezes the cost side of the product for inbound rows.
func purchaseSnapshotOf(p catalog.Product) ProductSnapshot {
	return ProductSnapshot{Name: p.Name, SKU: p.SKU, Price: p.CostPrice}
}

func isNotFound(err error) bool {
	var notFound *shared.NotFoundError
	return errors.As(err, &notFound)
}
