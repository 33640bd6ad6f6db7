package notify

import (
	"context"
	"time"
)

// Type tags a notification with the event that produced it.
type Type string

const (
	TypeLowStock Type = "low_stock"
	TypeSale     Type = "sale"
	TypePurchase Type = "purchase"
	TypeExpense  Type = "expense"
)

// Notification is one per-recipient row. EventRef groups the rows born from
// a single fan-out so a batch can be traced end to end.
type Notification struct {
	ID        int64
	EventRef  string
	Recipient string
	Type      Type
	Title     string
	Message   string
	Link      string
	IsRead    bool
	CreatedAt time.Time
}

// Resolver names the recipients for an event type at fan-out time. It is
// injected so the recorder never learns how targeting works.
type Resolver func(ctx context.Context, t Type) ([]string, error)

// StaticResolver targets a fixed recipient list regardless of event type.
func StaticResolver(recipients ...string) Resolver {
	return func(ctx context.Context, t Type) ([]string, error) {
		return recipients, nil
	}
}

// ListFilter narrows notification listings to one recipient.
type ListFilter struct {
	Recipient string
	Page      int
	PerPage   int
}
