package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// fakeHistory is an in-memory HistoryStore with containment matching.
type fakeHistory struct {
	points   []entity.PricePoint
	offers   []entity.CashbackOffer
	pingErr  error
	queryErr map[string]error
	batches  []entity.PriceBatch
	writeErr error
}

func (f *fakeHistory) Ping(context.Context) error { return f.pingErr }

func matches(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func (f *fakeHistory) PriceHistory(_ context.Context, name string, storeID *uuid.UUID, _ int) ([]entity.PricePoint, error) {
	if err := f.queryErr[name]; err != nil {
		return nil, err
	}
	var out []entity.PricePoint
	for _, p := range f.points {
		if storeID != nil && p.StoreID != *storeID {
			continue
		}
		if matches(p.ItemName, name) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeHistory) CompareStores(context.Context, string) ([]entity.StorePriceStats, error) {
	return nil, nil
}

func (f *fakeHistory) ActiveCashbackOffers(_ context.Context, storeID uuid.UUID, name string, _ time.Time) ([]entity.CashbackOffer, error) {
	var out []entity.CashbackOffer
	for _, o := range f.offers {
		if o.StoreID != storeID {
			continue
		}
		if o.ItemName == nil || matches(*o.ItemName, name) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeHistory) RecordReceipt(_ context.Context, b entity.PriceBatch) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.batches = append(f.batches, b)
	return nil
}
