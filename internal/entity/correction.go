package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/shopspring/decimal"
)

// ItemCorrection records a user's fix to a segmented item.
type ItemCorrection struct {
	ID                uuid.UUID           `json:"id"`
	ReceiptID         uuid.UUID           `json:"receipt_id"`
	ItemID            *uuid.UUID          `json:"item_id,omitempty"`
	UserID            uuid.UUID           `json:"user_id"`
	OriginalName      string              `json:"original_name"`
	CorrectedName     string              `json:"corrected_name"`
	OriginalPrice     decimal.Decimal     `json:"original_price"`
	CorrectedPrice    *decimal.Decimal    `json:"corrected_price,omitempty"`
	OriginalQuantity  int                 `json:"original_quantity"`
	CorrectedQuantity *int                `json:"corrected_quantity,omitempty"`
	CorrectedCategory *constants.Category `json:"corrected_category,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}
