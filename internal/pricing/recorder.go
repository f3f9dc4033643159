package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
	"github.com/shopspring/decimal"
)

// Recorder writes a parsed receipt into price history.
type Recorder struct {
	writer  HistoryWriter
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewRecorder(writer HistoryWriter, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{writer: writer, logger: logger, metrics: m, now: time.Now}
}

// StoreReceiptPrices reports whether the whole batch committed.
func (r *Recorder) StoreReceiptPrices(ctx context.Context, receipt entity.ReceiptData, storeID, userID uuid.UUID) bool {
	start := time.Now()
	batch := BuildPriceBatch(receipt, storeID, userID, r.now())
	if err := r.writer.RecordReceipt(ctx, batch); err != nil {
		r.metrics.PriceWrite(metrics.OutcomeRolledBack)
		r.logger.Error("pricing.record.failed",
			"store_id", storeID,
			"points", len(batch.Points),
			"error", err,
		)
		return false
	}
	r.metrics.PriceWrite(metrics.OutcomeCommitted)
	r.logger.Info("pricing.record.ok",
		"store_id", storeID,
		"points", len(batch.Points),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return true
}

// BuildPriceBatch derives price points and the anonymized snapshot from a
// receipt. Items whose name normalizes to nothing are left out of both.
func BuildPriceBatch(receipt entity.ReceiptData, storeID, userID uuid.UUID, now time.Time) entity.PriceBatch {
	day := entity.Day(now)
	if receipt.Date != nil {
		day = entity.Day(*receipt.Date)
	}
	total := decimal.Zero
	if receipt.Total != nil {
		total = *receipt.Total
	}

	batch := entity.PriceBatch{
		UserID:  userID,
		StoreID: storeID,
		Points:  make([]entity.PricePoint, 0, len(receipt.Items)),
		Snapshot: entity.BasketSnapshot{
			ID:          uuid.New(),
			StoreID:     storeID,
			TotalAmount: total,
			ItemCount:   len(receipt.Items),
			Date:        day,
			Items:       make([]entity.SnapshotItem, 0, len(receipt.Items)),
		},
	}
	for _, it := range receipt.Items {
		key := NormalizeItemName(it.Name)
		if key == "" {
			continue
		}
		batch.Points = append(batch.Points, entity.PricePoint{
			StoreID:         storeID,
			ItemName:        key,
			Price:           it.Price,
			Date:            day,
			Source:          constants.PriceSourceReceipt,
			ConfidenceScore: it.Confidence,
		})
		batch.Snapshot.Items = append(batch.Snapshot.Items, entity.SnapshotItem{
			Name:       key,
			Price:      it.Price,
			PriceRange: constants.PriceRange(it.Price),
		})
	}
	return batch
}
