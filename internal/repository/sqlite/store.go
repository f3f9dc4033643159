// Package sqlite is the single-file price history backend used by the CLIs
// when no Postgres DSN is configured.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

//go:embed schema.sql
var schema string

const dateLayout = "2006-01-02"

// Store implements pricing.HistoryStore over modernc.org/sqlite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, common.NewAppError(common.CodeConfig, "open sqlite "+path, err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: logger, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("repository.sqlite.open.ok", "path", path)
	return s, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return common.NewAppError(common.CodeInternal, "apply sqlite schema", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return common.Unavailable("ping sqlite", err)
	}
	return nil
}

func (s *Store) since(days int) string {
	return entity.Day(s.now()).AddDate(0, 0, -days).Format(dateLayout)
}

const nameMatch = `ph.item_name <> '' AND (instr(lower(ph.item_name), lower(?1)) > 0 OR instr(lower(?1), lower(ph.item_name)) > 0)`

func (s *Store) PriceHistory(ctx context.Context, itemName string, storeID *uuid.UUID, lookbackDays int) ([]entity.PricePoint, error) {
	if lookbackDays <= 0 {
		lookbackDays = constants.PriceHistoryDefaultDays
	}
	var store any
	if storeID != nil {
		store = storeID.String()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT ph.store_id, st.name, st.is_active, ph.item_name, ph.price, ph.date,
		ph.source, ph.confidence_score, ph.volume, ph.image_url
	FROM price_history ph
	JOIN stores st ON st.id = ph.store_id
	WHERE `+nameMatch+`
	  AND ph.date >= ?2
	  AND (?3 IS NULL OR ph.store_id = ?3)
	ORDER BY ph.date ASC, ph.price ASC`, itemName, s.since(lookbackDays), store)
	if err != nil {
		return nil, classify("query price history", err)
	}
	defer rows.Close()

	points := make([]entity.PricePoint, 0)
	for rows.Next() {
		var (
			p   entity.PricePoint
			day string
			vol sql.NullString
			img sql.NullString
		)
		if err := rows.Scan(&p.StoreID, &p.StoreName, &p.StoreActive, &p.ItemName, &p.Price, &day,
			&p.Source, &p.ConfidenceScore, &vol, &img); err != nil {
			return nil, classify("scan price point", err)
		}
		if p.Date, err = time.Parse(dateLayout, day); err != nil {
			return nil, classify("parse price date", err)
		}
		p.Volume = nullable(vol)
		p.ImageURL = nullable(img)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate price history", err)
	}
	return points, nil
}

func (s *Store) CompareStores(ctx context.Context, itemName string) ([]entity.StorePriceStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT st.id, st.name, MIN(ph.price), MAX(ph.price), ROUND(AVG(ph.price), 2), COUNT(*)
	FROM price_history ph
	JOIN stores st ON st.id = ph.store_id
	WHERE `+nameMatch+`
	  AND ph.date >= ?2
	  AND st.is_active = 1
	GROUP BY st.id, st.name
	ORDER BY AVG(ph.price) ASC, st.name ASC`, itemName, s.since(constants.ComparisonLookbackDays))
	if err != nil {
		return nil, classify("compare stores", err)
	}
	defer rows.Close()

	stats := make([]entity.StorePriceStats, 0)
	for rows.Next() {
		var st entity.StorePriceStats
		if err := rows.Scan(&st.StoreID, &st.StoreName, &st.MinPrice, &st.MaxPrice, &st.AvgPrice, &st.PricePoints); err != nil {
			return nil, classify("scan store stats", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate store stats", err)
	}
	return stats, nil
}

func (s *Store) ActiveCashbackOffers(ctx context.Context, storeID uuid.UUID, itemName string, day time.Time) ([]entity.CashbackOffer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, store_id, item_name, discount_amount, discount_percentage,
		valid_from, valid_until, is_active, description
	FROM cashback_offers
	WHERE store_id = ?1
	  AND is_active = 1
	  AND valid_from <= ?3 AND valid_until >= ?3
	  AND (item_name IS NULL
	       OR instr(lower(item_name), lower(?2)) > 0
	       OR instr(lower(?2), lower(item_name)) > 0)
	ORDER BY valid_until ASC, id ASC`, storeID.String(), itemName, entity.Day(day).Format(dateLayout))
	if err != nil {
		return nil, classify("query cashback offers", err)
	}
	defer rows.Close()

	offers := make([]entity.CashbackOffer, 0)
	for rows.Next() {
		var (
			o           entity.CashbackOffer
			item        sql.NullString
			amount, pct decimal.NullDecimal
			from, until string
		)
		if err := rows.Scan(&o.ID, &o.StoreID, &item, &amount, &pct, &from, &until, &o.Active, &o.Description); err != nil {
			return nil, classify("scan cashback offer", err)
		}
		o.ItemName = nullable(item)
		o.DiscountAmount = nullDecimal(amount)
		o.DiscountPercentage = nullDecimal(pct)
		if o.ValidFrom, err = time.Parse(dateLayout, from); err != nil {
			return nil, classify("parse offer start", err)
		}
		if o.ValidUntil, err = time.Parse(dateLayout, until); err != nil {
			return nil, classify("parse offer end", err)
		}
		offers = append(offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate cashback offers", err)
	}
	return offers, nil
}

func (s *Store) RecordReceipt(ctx context.Context, batch entity.PriceBatch) (err error) {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin price batch", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("repository.sqlite.record.rollback_failed", "error", rbErr)
		}
		s.logger.Warn("repository.sqlite.record.rollback", "store_id", batch.StoreID, "error", err)
	}()

	var anonymizedID string
	if err = tx.QueryRowContext(ctx, `SELECT anonymized_id FROM users WHERE id = ?`, batch.UserID.String()).Scan(&anonymizedID); err != nil {
		return classify("resolve user "+batch.UserID.String(), err)
	}

	for _, p := range batch.Points {
		if _, err = tx.ExecContext(ctx, `INSERT INTO price_history
			(store_id, item_name, price, date, source, confidence_score, volume, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (store_id, item_name, date, source) DO UPDATE SET
			price = excluded.price,
			confidence_score = excluded.confidence_score,
			volume = excluded.volume,
			image_url = excluded.image_url,
			updated_at = CURRENT_TIMESTAMP`,
			batch.StoreID.String(), p.ItemName, p.Price, entity.Day(p.Date).Format(dateLayout),
			p.Source, p.ConfidenceScore, p.Volume, p.ImageURL,
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
	if _, err = tx.ExecContext(ctx, `INSERT INTO basket_snapshots
		(id, user_anonymized_id, store_id, total_amount, item_count, date, items)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(), anonymizedID, batch.StoreID.String(), snap.TotalAmount, snap.ItemCount,
		entity.Day(snap.Date).Format(dateLayout), string(items),
	); err != nil {
		return classify("insert basket snapshot", err)
	}

	if err = tx.Commit(); err != nil {
		return classify("commit price batch", err)
	}
	s.logger.Info("repository.sqlite.record.ok",
		"store_id", batch.StoreID,
		"points", len(batch.Points),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ListActive returns active stores ordered by name.
func (s *Store) ListActive(ctx context.Context) ([]entity.Store, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, chain, location, is_active
		FROM stores WHERE is_active = 1 ORDER BY name ASC`)
	if err != nil {
		return nil, classify("list stores", err)
	}
	defer rows.Close()

	stores := make([]entity.Store, 0)
	for rows.Next() {
		var st entity.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.Chain, &st.Location, &st.Active); err != nil {
			return nil, classify("scan store", err)
		}
		stores = append(stores, st)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate stores", err)
	}
	return stores, nil
}

// Create inserts or replaces a store.
func (s *Store) Create(ctx context.Context, st entity.Store) (entity.Store, error) {
	if st.ID == uuid.Nil {
		st.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO stores (id, name, chain, location, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, chain = excluded.chain,
			location = excluded.location, is_active = excluded.is_active`,
		st.ID.String(), st.Name, st.Chain, st.Location, st.Active)
	if err != nil {
		return entity.Store{}, classify("create store", err)
	}
	return st, nil
}

// Register returns the user's anonymized ID, creating the user when absent.
func (s *Store) Register(ctx context.Context, userID uuid.UUID) (string, error) {
	if _, err := s.db.ExecContext(ctx, `INSERT INTO users (id, anonymized_id) VALUES (?, ?)
		ON CONFLICT (id) DO NOTHING`, userID.String(), uuid.NewString()); err != nil {
		return "", classify("register user", err)
	}
	var anonymizedID string
	if err := s.db.QueryRowContext(ctx, `SELECT anonymized_id FROM users WHERE id = ?`, userID.String()).Scan(&anonymizedID); err != nil {
		return "", classify("read user", err)
	}
	return anonymizedID, nil
}

// AddOffer stores a cashback offer.
func (s *Store) AddOffer(ctx context.Context, o entity.CashbackOffer) (entity.CashbackOffer, error) {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO cashback_offers
		(id, store_id, item_name, discount_amount, discount_percentage, valid_from, valid_until, is_active, description)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID.String(), o.StoreID.String(), o.ItemName, o.DiscountAmount, o.DiscountPercentage,
		entity.Day(o.ValidFrom).Format(dateLayout), entity.Day(o.ValidUntil).Format(dateLayout), o.Active, o.Description)
	if err != nil {
		return entity.CashbackOffer{}, classify("add cashback offer", err)
	}
	return o, nil
}

// SnapshotCount reports how many basket snapshots exist.
func (s *Store) SnapshotCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM basket_snapshots`).Scan(&n); err != nil {
		return 0, classify("count snapshots", err)
	}
	return n, nil
}

func classify(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return common.NewAppError(common.CodeNotFound, op, errors.Join(common.ErrNotFound, err))
	case errors.Is(err, sql.ErrConnDone), errors.Is(err, context.DeadlineExceeded):
		return common.Unavailable(op, err)
	default:
		return common.NewAppError(common.CodeInternal, fmt.Sprintf("sqlite %s", op), err)
	}
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullDecimal(nd decimal.NullDecimal) *decimal.Decimal {
	if !nd.Valid {
		return nil
	}
	v := nd.Decimal
	return &v
}
