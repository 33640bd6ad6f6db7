package catalog

import (
	"context"
	"log/slog"

	"github.com/brimstock/brimstock/internal/shared"
)

// RepositoryPort abstracts product persistence for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// CachePort invalidates derived report state after a committed mutation.
// The stock report is built from the products table, so catalog changes
// must bump it the same way ledger commits do.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service coordinates catalog operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cache  CachePort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache CachePort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger}
}

// Create validates and persists a new product. Duplicate SKUs surface as
// ConflictError regardless of case.
func (s *Service) Create(ctx context.Context, input CreateInput, actor shared.Actor) (Product, error) {
	if input.Name == "" {
		return Product{}, shared.Validationf("catalog: name required")
	}
	if NormalizeSKU(input.SKU) == "" {
		return Product{}, shared.Validationf("catalog: sku required")
	}
	if input.Category == "" {
		return Product{}, shared.Validationf("catalog: category required")
	}
	if input.CostPrice < 0 || input.SellingPrice < 0 {
		return Product{}, shared.Validationf("catalog: prices must be >= 0")
	}
	if input.ReorderThreshold < 0 {
		return Product{}, shared.Validationf("catalog: reorder threshold must be >= 0")
	}
	product := Product{
		Name:             input.Name,
		SKU:              NormalizeSKU(input.SKU),
		Category:         input.Category,
		CostPrice:        input.CostPrice,
		SellingPrice:     input.SellingPrice,
		ReorderThreshold: input.ReorderThreshold,
	}
	created, err := s.repo.Insert(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actor, "create_product", created.ID, map[string]any{"name": created.Name, "sku": created.SKU})
	s.bumpCache(ctx)
	return created, nil
}

// Update applies a partial update. Omitted fields are unchanged.
func (s *Service) Update(ctx context.Context, id int64, patch UpdateInput, actor shared.Actor) (Product, error) {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if patch.Name != nil {
		if *patch.Name == "" {
			return Product{}, shared.Validationf("catalog: name required")
		}
		product.Name = *patch.Name
	}
	if patch.SKU != nil {
		sku := NormalizeSKU(*patch.SKU)
		if sku == "" {
			return Product{}, shared.Validationf("catalog: sku required")
		}
		product.SKU = sku
	}
	if patch.Category != nil {
		if *patch.Category == "" {
			return Product{}, shared.Validationf("catalog: category required")
		}
		product.Category = *patch.Category
	}
	if patch.CostPrice != nil {
		if *patch.CostPrice < 0 {
			return Product{}, shared.Validationf("catalog: cost price must be >= 0")
		}
		product.CostPrice = *patch.CostPrice
	}
	if patch.SellingPrice != nil {
		if *patch.SellingPrice < 0 {
			return Product{}, shared.Validationf("catalog: selling price must be >= 0")
		}
		product.SellingPrice = *patch.SellingPrice
	}
	if patch.ReorderThreshold != nil {
		if *patch.ReorderThreshold < 0 {
			return Product{}, shared.Validationf("catalog: reorder threshold must be >= 0")
		}
		product.ReorderThreshold = *patch.ReorderThreshold
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, actor, "update_product", product.ID, map[string]any{"name": product.Name, "sku": product.SKU})
	s.bumpCache(ctx)
	return product, nil
}

// Delete removes the catalog row. Historical sale and purchase rows keep
// their snapshots and are not cascaded.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "delete_product", id, map[string]any{"name": product.Name, "sku": product.SKU})
	s.bumpCache(ctx)
	return nil
}

// Get fetches a single product.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

// List returns a filtered product page plus pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Product, shared.Pagination, error) {
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return products, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, productID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditEntry{
		Actor:    actor.Name,
		Action:   action,
		Entity:   "product",
		EntityID: formatID(productID),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("catalog: audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("catalog: report cache bump failed", slog.Any("error", err))
	}
}
