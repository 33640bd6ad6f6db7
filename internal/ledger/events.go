package ledger

import (
	"context"

	"github.com/brimstock/brimstock/internal/types"
)

// NotifierPort receives ledger events after commit. Implementations are
// best-effort: the recorder logs failures and never rolls back for them.
type NotifierPort interface {
	FanOutSale(ctx context.Context, productName string, qty int64, total types.Money, actor string) error
	FanOutPurchase(ctx context.Context, productName, supplier string, qty int64, total types.Money, actor string) error
	FanOutLowStock(ctx context.Context, productName, sku string, stock int64) error
}

// CachePort invalidates derived report state after a committed mutation.
type CachePort interface {
	Bump(ctx context.Context) error
}
