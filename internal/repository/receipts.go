package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// ReceiptRepository persists parsed receipts and their items.
type ReceiptRepository interface {
	Save(ctx context.Context, userID uuid.UUID, storeID *uuid.UUID, parsed entity.ParsedReceipt) (entity.StoredReceipt, error)
	ListItems(ctx context.Context, receiptID uuid.UUID) ([]entity.StoredItem, error)
}

const (
	insertReceiptSQL = `INSERT INTO receipts
		(id, user_id, store_id, store_name, receipt_date, receipt_number, subtotal, tax, total,
		 is_valid, confidence_score, method, source_path)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING created_at`

	insertReceiptItemSQL = `INSERT INTO receipt_items
		(id, receipt_id, position, name, price, quantity, category, confidence)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	selectReceiptItemsSQL = `SELECT id, position, name, price, quantity, category, confidence
	FROM receipt_items WHERE receipt_id = $1 ORDER BY position ASC`
)

type receiptRepository struct {
	db     DB
	logger *slog.Logger
}

func NewReceiptRepository(db DB, logger *slog.Logger) ReceiptRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &receiptRepository{db: db, logger: logger}
}

func (r *receiptRepository) Save(ctx context.Context, userID uuid.UUID, storeID *uuid.UUID, parsed entity.ParsedReceipt) (stored entity.StoredReceipt, err error) {
	start := time.Now()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return entity.StoredReceipt{}, classify("begin receipt", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error("repository.receipt.save.rollback_failed", "error", rbErr)
			}
		}
	}()

	rec := parsed.Receipt
	var date *time.Time
	if rec.Date != nil {
		d := entity.Day(*rec.Date)
		date = &d
	}
	stored = entity.StoredReceipt{ID: uuid.New(), UserID: userID, StoreID: storeID}
	if err = tx.QueryRow(ctx, insertReceiptSQL,
		stored.ID, userID, storeID, rec.StoreName, date, rec.ReceiptNumber, rec.Subtotal, rec.Tax, rec.Total,
		parsed.Validation.IsValid, parsed.Validation.ConfidenceScore, parsed.Method, parsed.SourcePath,
	).Scan(&stored.CreatedAt); err != nil {
		return entity.StoredReceipt{}, classify("insert receipt", err)
	}

	stored.Items = make([]entity.StoredItem, 0, len(rec.Items))
	for i, it := range rec.Items {
		item := entity.StoredItem{ID: uuid.New(), Position: i, Item: it}
		if _, err = tx.Exec(ctx, insertReceiptItemSQL,
			item.ID, stored.ID, i, it.Name, it.Price, it.Quantity, categoryArg(it.Category), it.Confidence,
		); err != nil {
			return entity.StoredReceipt{}, classify("insert receipt item", err)
		}
		stored.Items = append(stored.Items, item)
	}

	if err = tx.Commit(ctx); err != nil {
		return entity.StoredReceipt{}, classify("commit receipt", err)
	}
	r.logger.Info("repository.receipt.save.ok",
		"receipt_id", stored.ID,
		"items", len(stored.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return stored, nil
}

func (r *receiptRepository) ListItems(ctx context.Context, receiptID uuid.UUID) ([]entity.StoredItem, error) {
	rows, err := r.db.Query(ctx, selectReceiptItemsSQL, receiptID)
	if err != nil {
		return nil, classify("list receipt items", err)
	}
	defer rows.Close()

	items := make([]entity.StoredItem, 0)
	for rows.Next() {
		var (
			si       entity.StoredItem
			category *string
		)
		if err := rows.Scan(&si.ID, &si.Position, &si.Item.Name, &si.Item.Price, &si.Item.Quantity,
			&category, &si.Item.Confidence); err != nil {
			return nil, classify("scan receipt item", err)
		}
		si.Item.Category = categoryFrom(category)
		items = append(items, si)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate receipt items", err)
	}
	if len(items) == 0 {
		return nil, common.NewAppError(common.CodeNotFound, "receipt "+receiptID.String(), common.ErrNotFound)
	}
	return items, nil
}

func categoryArg(c *constants.Category) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func categoryFrom(s *string) *constants.Category {
	if s == nil {
		return nil
	}
	if c, ok := constants.Canonicalize(*s); ok {
		return &c
	}
	c := constants.Category(*s)
	return &c
}
