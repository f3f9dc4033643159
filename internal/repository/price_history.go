package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/pricing"
)

// Names on both sides are normalized lowercase; position() gives containment
// either way without LIKE wildcards leaking in from item names.
const nameMatch = `ph.item_name <> '' AND (position(lower($1) in lower(ph.item_name)) > 0 OR position(lower(ph.item_name) in lower($1)) > 0)`

const (
	selectPriceHistorySQL = `SELECT ph.store_id, s.name, s.is_active, ph.item_name, ph.price, ph.date, ph.source,
		ph.confidence_score, ph.volume, ph.image_url
	FROM price_history ph
	JOIN stores s ON s.id = ph.store_id
	WHERE ` + nameMatch + `
	  AND ph.date >= $2::date
	  AND ($3::uuid IS NULL OR ph.store_id = $3::uuid)
	ORDER BY ph.date ASC, ph.price ASC`

	compareStoresSQL = `SELECT s.id, s.name, MIN(ph.price), MAX(ph.price), ROUND(AVG(ph.price), 2), COUNT(*)
	FROM price_history ph
	JOIN stores s ON s.id = ph.store_id
	WHERE ` + nameMatch + `
	  AND ph.date >= $2::date
	  AND s.is_active
	GROUP BY s.id, s.name
	ORDER BY AVG(ph.price) ASC, s.name ASC`

	activeOffersSQL = `SELECT id, store_id, item_name, discount_amount, discount_percentage,
		valid_from, valid_until, is_active, description
	FROM cashback_offers
	WHERE store_id = $1
	  AND is_active
	  AND valid_from <= $3::date AND valid_until >= $3::date
	  AND (item_name IS NULL
	       OR position(lower($2) in lower(item_name)) > 0
	       OR position(lower(item_name) in lower($2)) > 0)
	ORDER BY valid_until ASC, id ASC`

	selectAnonymizedIDSQL = `SELECT anonymized_id FROM users WHERE id = $1`

	upsertPricePointSQL = `INSERT INTO price_history
		(store_id, item_name, price, date, source, confidence_score, volume, image_url)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (store_id, item_name, date, source) DO UPDATE SET
		price = EXCLUDED.price,
		confidence_score = EXCLUDED.confidence_score,
		volume = EXCLUDED.volume,
		image_url = EXCLUDED.image_url,
		updated_at = now()`

	insertSnapshotSQL = `INSERT INTO basket_snapshots
		(id, user_anonymized_id, store_id, total_amount, item_count, date, items)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

type priceHistoryRepository struct {
	db     DB
	logger *slog.Logger
	now    func() time.Time
}

// NewPriceHistoryRepository returns the Postgres-backed price history store.
func NewPriceHistoryRepository(db DB, logger *slog.Logger) pricing.HistoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &priceHistoryRepository{db: db, logger: logger, now: time.Now}
}

func (r *priceHistoryRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return common.Unavailable("ping price history", err)
	}
	return nil
}

func (r *priceHistoryRepository) since(days int) time.Time {
	return entity.Day(r.now()).AddDate(0, 0, -days)
}

func (r *priceHistoryRepository) PriceHistory(ctx context.Context, itemName string, storeID *uuid.UUID, lookbackDays int) ([]entity.PricePoint, error) {
	if lookbackDays <= 0 {
		lookbackDays = constants.PriceHistoryDefaultDays
	}
	rows, err := r.db.Query(ctx, selectPriceHistorySQL, itemName, r.since(lookbackDays), storeID)
	if err != nil {
		return nil, classify("query price history", err)
	}
	defer rows.Close()

	points := make([]entity.PricePoint, 0)
	for rows.Next() {
		var p entity.PricePoint
		if err := rows.Scan(&p.StoreID, &p.StoreName, &p.StoreActive, &p.ItemName, &p.Price, &p.Date,
			&p.Source, &p.ConfidenceScore, &p.Volume, &p.ImageURL); err != nil {
			return nil, classify("scan price point", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate price history", err)
	}
	return points, nil
}

func (r *priceHistoryRepository) CompareStores(ctx context.Context, itemName string) ([]entity.StorePriceStats, error) {
	rows, err := r.db.Query(ctx, compareStoresSQL, itemName, r.since(constants.ComparisonLookbackDays))
	if err != nil {
		return nil, classify("compare stores", err)
	}
	defer rows.Close()

	stats := make([]entity.StorePriceStats, 0)
	for rows.Next() {
		var s entity.StorePriceStats
		if err := rows.Scan(&s.StoreID, &s.StoreName, &s.MinPrice, &s.MaxPrice, &s.AvgPrice, &s.PricePoints); err != nil {
			return nil, classify("scan store stats", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate store stats", err)
	}
	return stats, nil
}

func (r *priceHistoryRepository) ActiveCashbackOffers(ctx context.Context, storeID uuid.UUID, itemName string, day time.Time) ([]entity.CashbackOffer, error) {
	rows, err := r.db.Query(ctx, activeOffersSQL, storeID, itemName, entity.Day(day))
	if err != nil {
		return nil, classify("query cashback offers", err)
	}
	defer rows.Close()

	offers := make([]entity.CashbackOffer, 0)
	for rows.Next() {
		var o entity.CashbackOffer
		if err := rows.Scan(&o.ID, &o.StoreID, &o.ItemName, &o.DiscountAmount, &o.DiscountPercentage,
			&o.ValidFrom, &o.ValidUntil, &o.Active, &o.Description); err != nil {
			return nil, classify("scan cashback offer", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate cashback offers", err)
	}
	return offers, nil
}

func (r *priceHistoryRepository) RecordReceipt(ctx context.Context, batch entity.PriceBatch) (err error) {
	start := time.Now()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classify("begin price batch", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			r.logger.Error("repository.price_history.record.rollback_failed", "error", rbErr)
		}
		r.logger.Warn("repository.price_history.record.rollback",
			"store_id", batch.StoreID, "points", len(batch.Points), "error", err)
	}()

	var anonymizedID string
	if err = tx.QueryRow(ctx, selectAnonymizedIDSQL, batch.UserID).Scan(&anonymizedID); err != nil {
		return classify("resolve user "+batch.UserID.String(), err)
	}

	for _, p := range batch.Points {
		if _, err = tx.Exec(ctx, upsertPricePointSQL,
			batch.StoreID, p.ItemName, p.Price, entity.Day(p.Date), p.Source, p.ConfidenceScore, p.Volume, p.ImageURL,
		); err != nil {
			return classify("upsert price point "+p.ItemName, err)
		}
	}

	snap := batch.Snapshot
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return common.NewAppError(common.CodeInternal, "encode snapshot items", err)
	}
	if _, err = tx.Exec(ctx, insertSnapshotSQL,
		snap.ID, anonymizedID, batch.StoreID, snap.TotalAmount, snap.ItemCount, entity.Day(snap.Date), items,
	); err != nil {
		return classify("insert basket snapshot", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return classify("commit price batch", err)
	}
	r.logger.Info("repository.price_history.record.ok",
		"store_id", batch.StoreID,
		"points", len(batch.Points),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
