package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// HistoryReader is the read side of the price-history store. Name arguments
// are already normalized; implementations match when either name contains
// the other. Connectivity failures wrap common.ErrUnavailable.
type HistoryReader interface {
	Ping(ctx context.Context) error
	// PriceHistory returns points ordered by date ascending. A nil storeID means every store.
	PriceHistory(ctx context.Context, itemName string, storeID *uuid.UUID, lookbackDays int) ([]entity.PricePoint, error)
	// CompareStores aggregates the comparison window per store, cheapest average first.
	CompareStores(ctx context.Context, itemName string) ([]entity.StorePriceStats, error)
	// ActiveCashbackOffers returns offers for the store valid on day whose item
	// matches itemName or is unset.
	ActiveCashbackOffers(ctx context.Context, storeID uuid.UUID, itemName string, day time.Time) ([]entity.CashbackOffer, error)
}

// HistoryWriter persists receipt prices.
type HistoryWriter interface {
	// RecordReceipt upserts every point and inserts the snapshot in one
	// transaction. On error nothing is written.
	RecordReceipt(ctx context.Context, batch entity.PriceBatch) error
}

type HistoryStore interface {
	HistoryReader
	HistoryWriter
}

// Comparer is the subset used by the comparison cache.
type Comparer interface {
	CompareStores(ctx context.Context, itemName string) ([]entity.StorePriceStats, error)
}
