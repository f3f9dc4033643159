package repository

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// CorrectionRepository stores user fixes to segmented items.
type CorrectionRepository interface {
	Record(ctx context.Context, c entity.ItemCorrection) (entity.ItemCorrection, error)
	ListForReceipt(ctx context.Context, receiptID uuid.UUID) ([]entity.ItemCorrection, error)
}

const (
	resolveItemSQL = `SELECT id FROM receipt_items
	WHERE receipt_id = $1 AND name = $2 AND price = $3 AND quantity = $4
	ORDER BY position ASC LIMIT 1`

	insertCorrectionSQL = `INSERT INTO item_corrections
		(id, receipt_id, item_id, user_id, original_name, corrected_name, original_price, corrected_price,
		 original_quantity, corrected_quantity, corrected_category)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING created_at`

	selectCorrectionsSQL = `SELECT id, receipt_id, item_id, user_id, original_name, corrected_name,
		original_price, corrected_price, original_quantity, corrected_quantity, corrected_category, created_at
	FROM item_corrections WHERE receipt_id = $1
	ORDER BY created_at DESC, id ASC`
)

type correctionRepository struct {
	db     DB
	logger *slog.Logger
}

func NewCorrectionRepository(db DB, logger *slog.Logger) CorrectionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &correctionRepository{db: db, logger: logger}
}

// Record stores c. A nil ItemID is resolved from the original name, price and quantity.
func (r *correctionRepository) Record(ctx context.Context, c entity.ItemCorrection) (entity.ItemCorrection, error) {
	v := common.NewValidator()
	v.Field("corrected_name", c.CorrectedName, common.Required, common.MaxLength(200))
	v.Field("original_name", c.OriginalName, common.Required)
	v.Field("corrected_quantity", c.CorrectedQuantity, common.PositiveInt)
	v.Field("corrected_price", c.CorrectedPrice, common.NonNegativeMoney)
	v.Field("receipt_id", c.ReceiptID, common.Required)
	v.Field("user_id", c.UserID, common.Required)
	if err := v.Err(); err != nil {
		return entity.ItemCorrection{}, err
	}

	if c.ItemID == nil {
		var itemID uuid.UUID
		if err := r.db.QueryRow(ctx, resolveItemSQL,
			c.ReceiptID, c.OriginalName, c.OriginalPrice, c.OriginalQuantity,
		).Scan(&itemID); err != nil {
			return entity.ItemCorrection{}, classify("resolve corrected item", err)
		}
		c.ItemID = &itemID
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	if err := r.db.QueryRow(ctx, insertCorrectionSQL,
		c.ID, c.ReceiptID, c.ItemID, c.UserID, c.OriginalName, c.CorrectedName, c.OriginalPrice, c.CorrectedPrice,
		c.OriginalQuantity, c.CorrectedQuantity, categoryArg(c.CorrectedCategory),
	).Scan(&c.CreatedAt); err != nil {
		return entity.ItemCorrection{}, classify("insert item correction", err)
	}
	r.logger.Info("repository.correction.record.ok", "receipt_id", c.ReceiptID, "item_id", *c.ItemID)
	return c, nil
}

func (r *correctionRepository) ListForReceipt(ctx context.Context, receiptID uuid.UUID) ([]entity.ItemCorrection, error) {
	rows, err := r.db.Query(ctx, selectCorrectionsSQL, receiptID)
	if err != nil {
		return nil, classify("list item corrections", err)
	}
	defer rows.Close()

	out := make([]entity.ItemCorrection, 0)
	for rows.Next() {
		var (
			c        entity.ItemCorrection
			category *string
		)
		if err := rows.Scan(&c.ID, &c.ReceiptID, &c.ItemID, &c.UserID, &c.OriginalName, &c.CorrectedName,
			&c.OriginalPrice, &c.CorrectedPrice, &c.OriginalQuantity, &c.CorrectedQuantity, &category, &c.CreatedAt); err != nil {
			return nil, classify("scan item correction", err)
		}
		c.CorrectedCategory = categoryFrom(category)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate item corrections", err)
	}
	return out, nil
}
