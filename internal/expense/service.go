package expense

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

// RepositoryPort abstracts expense persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, exp Expense) (Expense, error)
	Update(ctx context.Context, exp Expense) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Expense, error)
	List(ctx context.Context, filter ListFilter) ([]Expense, int, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, entry shared.AuditEntry) error
}

// NotifierPort fans out the expense event after commit, best-effort.
type NotifierPort interface {
	FanOutExpense(ctx context.Context, category string, amount types.Money, actor string) error
}

// CachePort invalidates derived report state after a committed mutation.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service implements expense CRUD.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	notifier NotifierPort
	cache    CachePort
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, notifier NotifierPort, cache CachePort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, notifier: notifier, cache: cache, logger: logger}
}

// Create records a new expense and fans out the event post-commit.
func (s *Service) Create(ctx context.Context, input CreateInput, actor shared.Actor) (Expense, error) {
	if input.Category == "" {
		return Expense{}, shared.Validationf("expense: category required")
	}
	if input.Amount <= 0 {
		return Expense{}, shared.Validationf("expense: amount must be > 0")
	}
	spentAt := input.SpentAt
	if spentAt.IsZero() {
		spentAt = time.Now().UTC()
	}
	exp, err := s.repo.Insert(ctx, Expense{
		Category:      input.Category,
		Amount:        input.Amount,
		Description:   input.Description,
		PaymentMethod: input.PaymentMethod,
		Actor:         actor.Name,
		SpentAt:       spentAt,
	})
	if err != nil {
		return Expense{}, err
	}

	bg := context.WithoutCancel(ctx)
	s.recordAudit(bg, actor, "create_expense", exp.ID, map[string]any{
		"category": exp.Category,
		"amount":   int64(exp.Amount),
	})
	s.bumpCache(bg)
	if s.notifier != nil {
		if err := s.notifier.FanOutExpense(bg, exp.Category, exp.Amount, actor.Name); err != nil {
			s.logger.Warn("expense: notification fan-out failed", slog.Any("error", err))
		}
	}
	return exp, nil
}

// Update applies a partial edit.
func (s *Service) Update(ctx context.Context, id int64, patch UpdateInput, actor shared.Actor) (Expense, error) {
	if patch.Category != nil && *patch.Category == "" {
		return Expense{}, shared.Validationf("expense: category required")
	}
	if patch.Amount != nil && *patch.Amount <= 0 {
		return Expense{}, shared.Validationf("expense: amount must be > 0")
	}
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if patch.Category != nil {
		exp.Category = *patch.Category
	}
	if patch.Amount != nil {
		exp.Amount = *patch.Amount
	}
	if patch.Description != nil {
		exp.Description = *patch.Description
	}
	if patch.PaymentMethod != nil {
		exp.PaymentMethod = *patch.PaymentMethod
	}
	if patch.SpentAt != nil {
		exp.SpentAt = *patch.SpentAt
	}
	if err := s.repo.Update(ctx, exp); err != nil {
		return Expense{}, err
	}

	bg := context.WithoutCancel(ctx)
	s.recordAudit(bg, actor, "update_expense", exp.ID, map[string]any{
		"category": exp.Category,
		"amount":   int64(exp.Amount),
	})
	s.bumpCache(bg)
	return exp, nil
}

// Delete removes an expense row.
func (s *Service) Delete(ctx context.Context, id int64, actor shared.Actor) error {
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	s.recordAudit(bg, actor, "delete_expense", id, map[string]any{
		"category": exp.Category,
		"amount":   int64(exp.Amount),
	})
	s.bumpCache(bg)
	return nil
}

// Get fetches one expense.
func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.Get(ctx, id)
}

// List returns an expense page newest-first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Expense, shared.Pagination, error) {
	expenses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return expenses, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	entry := shared.AuditEntry{
		Actor:    actor.Name,
		Action:   action,
		Entity:   "expense",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("expense: audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("expense: report cache bump failed", slog.Any("error", err))
	}
}
