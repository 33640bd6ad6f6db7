package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/brimstock/brimstock/internal/shared"
	"github.com/brimstock/brimstock/internal/types"
)

// RepositoryPort abstracts notification persistence.
type RepositoryPort interface {
	InsertBatch(ctx context.Context, notifications []Notification) ([]Notification, error)
	Get(ctx context.Context, id int64) (Notification, error)
	List(ctx context.Context, filter ListFilter) ([]Notification, int, int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// EnqueuerPort hands a persisted notification to the delivery queue.
// Enqueue failures are logged and swallowed; the rows are already stored.
type EnqueuerPort interface {
	EnqueueDelivery(ctx context.Context, notificationID int64, recipient, title, body string) error
}

// Service persists per-recipient notification rows and fans events out to
// whatever recipients the injected resolver names at call time.
type Service struct {
	repo     RepositoryPort
	resolver Resolver
	enqueuer EnqueuerPort
	logger   *slog.Logger
	printer  *message.Printer
}

// NewService builds Service.
func NewService(repo RepositoryPort, resolver Resolver, enqueuer EnqueuerPort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		resolver: resolver,
		enqueuer: enqueuer,
		logger:   logger,
		printer:  message.NewPrinter(language.English),
	}
}

// Create stores one notification for one recipient.
func (s *Service) Create(ctx context.Context, recipient string, t Type, title, msg, link string) (Notification, error) {
	if recipient == "" {
		return Notification{}, shared.Validationf("notify: recipient required")
	}
	if title == "" {
		return Notification{}, shared.Validationf("notify: title required")
	}
	rows, err := s.repo.InsertBatch(ctx, []Notification{{
		EventRef:  uuid.NewString(),
		Recipient: recipient,
		Type:      t,
		Title:     title,
		Message:   msg,
		Link:      link,
	}})
	if err != nil {
		return Notification{}, err
	}
	return rows[0], nil
}

// FanOutSale notifies resolved recipients about a recorded sale.
func (s *Service) FanOutSale(ctx context.Context, productName string, qty int64, total types.Money, actor string) error {
	msg := s.printer.Sprintf("%s sold %d x %s for %s", actor, qty, productName, total)
	return s.fanOut(ctx, TypeSale, "Sale recorded", msg, "/sales")
}

// FanOutPurchase notifies resolved recipients about a recorded purchase.
func (s *Service) FanOutPurchase(ctx context.Context, productName, supplier string, qty int64, total types.Money, actor string) error {
	msg := s.printer.Sprintf("%s purchased %d x %s from %s for %s", actor, qty, productName, supplier, total)
	return s.fanOut(ctx, TypePurchase, "Purchase recorded", msg, "/purchases")
}

// FanOutLowStock warns resolved recipients that a product crossed the
// reorder threshold.
func (s *Service) FanOutLowStock(ctx context.Context, productName, sku string, stock int64) error {
	msg := s.printer.Sprintf("%s (%s) is down to %d units", productName, sku, stock)
	return s.fanOut(ctx, TypeLowStock, "Low stock", msg, "/products")
}

// FanOutExpense notifies resolved recipients about a recorded expense.
func (s *Service) FanOutExpense(ctx context.Context, category string, amount types.Money, actor string) error {
	msg := s.printer.Sprintf("%s recorded a %s expense of %s", actor, category, amount)
	return s.fanOut(ctx, TypeExpense, "Expense recorded", msg, "/expenses")
}

func (s *Service) fanOut(ctx context.Context, t Type, title, msg, link string) error {
	recipients, err := s.resolver(ctx, t)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}
	ref := uuid.NewString()
	batch := make([]Notification, 0, len(recipients))
	for _, recipient := range recipients {
		batch = append(batch, Notification{
			EventRef:  ref,
			Recipient: recipient,
			Type:      t,
			Title:     title,
			Message:   msg,
			Link:      link,
		})
	}
	rows, err := s.repo.InsertBatch(ctx, batch)
	if err != nil {
		return err
	}
	if s.enqueuer == nil {
		return nil
	}
	for _, row := range rows {
		if err := s.enqueuer.EnqueueDelivery(ctx, row.ID, row.Recipient, row.Title, row.Message); err != nil {
			s.logger.Warn("notify: delivery enqueue failed",
				slog.Int64("notification_id", row.ID), slog.Any("error", err))
		}
	}
	return nil
}

// List returns a recipient's page newest-first plus their unread count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Notification, int, shared.Pagination, error) {
	if filter.Recipient == "" {
		return nil, 0, shared.Pagination{}, shared.Validationf("notify: recipient required")
	}
	rows, total, unread, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, shared.Pagination{}, err
	}
	return rows, unread, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// MarkRead flips one notification to read. Safe to repeat.
func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead flips every unread notification for a recipient. Safe to
// repeat; returns how many rows actually changed.
func (s *Service) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	if recipient == "" {
		return 0, shared.Validationf("notify: recipient required")
	}
	return s.repo.MarkAllRead(ctx, recipient)
}

// Delete removes one notification row.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
