package pricing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
	"github.com/shopspring/decimal"
)

// Analyzer finds cheaper recorded prices for a basket.
type Analyzer struct {
	history       HistoryReader
	logger        *slog.Logger
	metrics       *metrics.Metrics
	lookbackDays  int
	minConfidence float64
	now           func() time.Time
}

type AnalyzerOption func(*Analyzer)

// WithLookbackDays overrides the 30-day savings window.
func WithLookbackDays(days int) AnalyzerOption {
	return func(a *Analyzer) {
		if days > 0 {
			a.lookbackDays = days
		}
	}
}

// WithMinPointConfidence ignores history points scored below min.
func WithMinPointConfidence(min float64) AnalyzerOption {
	return func(a *Analyzer) { a.minConfidence = min }
}

func WithMetrics(m *metrics.Metrics) AnalyzerOption {
	return func(a *Analyzer) { a.metrics = m }
}

// WithClock fixes "today" for cashback validity and the lookback cut-off.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) { a.now = now }
}

func NewAnalyzer(history HistoryReader, logger *slog.Logger, opts ...AnalyzerOption) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{
		history:      history,
		logger:       logger,
		lookbackDays: constants.SavingsLookbackDays,
		now:          time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// AnalyzeBasket compares each item against the cheapest active-store price in
// the lookback window. A failed per-item lookup skips that item. When the
// history store cannot be reached at all the zero-value analysis is returned,
// which callers cannot tell apart from "no savings"; the unavailable case is
// logged and counted separately.
func (a *Analyzer) AnalyzeBasket(ctx context.Context, items []entity.ReceiptItem, storeID uuid.UUID) entity.BasketAnalysis {
	start := time.Now()
	if err := a.history.Ping(ctx); err != nil {
		return a.unavailable(err)
	}

	today := entity.Day(a.now())
	since := today.AddDate(0, 0, -a.lookbackDays)

	out := entity.EmptyBasketAnalysis()
	perStore := map[string]decimal.Decimal{}
	var storeOrder []string

	for _, it := range items {
		key := NormalizeItemName(it.Name)
		if key == "" {
			continue
		}
		points, err := a.history.PriceHistory(ctx, key, nil, a.lookbackDays)
		if err != nil {
			if errors.Is(err, common.ErrUnavailable) {
				return a.unavailable(err)
			}
			a.logger.Debug("pricing.analyze.item_skipped", "item", key, "error", err)
			continue
		}
		best, count, ok := a.cheapest(points, since)
		if !ok || !best.Price.LessThan(it.Price) {
			continue
		}
		savings := it.Price.Sub(best.Price)
		out.SavingsOpportunities = append(out.SavingsOpportunities, entity.SavingsOpportunity{
			ItemName:           it.Name,
			CurrentPrice:       it.Price,
			BestPrice:          best.Price,
			Savings:            savings,
			StoreName:          best.StoreName,
			Confidence:         best.ConfidenceScore,
			PriceHistoryPoints: count,
		})
		out.TotalSavings = out.TotalSavings.Add(savings)
		if _, seen := perStore[best.StoreName]; !seen {
			storeOrder = append(storeOrder, best.StoreName)
		}
		perStore[best.StoreName] = perStore[best.StoreName].Add(savings)
	}

	if len(storeOrder) > 0 {
		rec := storeOrder[0]
		for _, s := range storeOrder[1:] {
			if perStore[s].GreaterThan(perStore[rec]) {
				rec = s
			}
		}
		out.StoreRecommendation = &rec
	}

	out.CashbackAvailable = a.cashback(ctx, items, storeID, today)

	a.metrics.Analysis(metrics.OutcomeOK)
	a.logger.Debug("pricing.analyze.ok",
		"items", len(items),
		"opportunities", len(out.SavingsOpportunities),
		"total_savings", out.TotalSavings.StringFixed(2),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

// cheapest picks the lowest active-store price; the first of equal prices wins.
// count is how many eligible points share the winner's item name.
func (a *Analyzer) cheapest(points []entity.PricePoint, since time.Time) (entity.PricePoint, int, bool) {
	var (
		best  entity.PricePoint
		found bool
	)
	eligible := points[:0:0]
	for _, p := range points {
		if !p.StoreActive || p.ConfidenceScore < a.minConfidence || p.Date.Before(since) {
			continue
		}
		eligible = append(eligible, p)
		if !found || p.Price.LessThan(best.Price) {
			best, found = p, true
		}
	}
	if !found {
		return best, 0, false
	}
	count := 0
	for _, p := range eligible {
		if p.ItemName == best.ItemName {
			count++
		}
	}
	return best, count, true
}

// cashback sums the single best offer per item at the target store.
func (a *Analyzer) cashback(ctx context.Context, items []entity.ReceiptItem, storeID uuid.UUID, today time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		key := NormalizeItemName(it.Name)
		if key == "" {
			continue
		}
		offers, err := a.history.ActiveCashbackOffers(ctx, storeID, key, today)
		if err != nil {
			a.logger.Debug("pricing.cashback.item_skipped", "item", key, "error", err)
			continue
		}
		best := decimal.Zero
		for _, o := range offers {
			if !o.ValidOn(today) {
				continue
			}
			if v := o.Value(it.Price); v.GreaterThan(best) {
				best = v
			}
		}
		total = total.Add(best)
	}
	return total
}

func (a *Analyzer) unavailable(err error) entity.BasketAnalysis {
	a.metrics.Analysis(metrics.OutcomeUnavailable)
	a.logger.Warn("pricing.analyze.unavailable", "error", err)
	return entity.EmptyBasketAnalysis()
}
