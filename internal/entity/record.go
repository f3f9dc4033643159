package entity

import (
	"time"

	"github.com/google/uuid"
)

// StoredItem is a persisted receipt line.
type StoredItem struct {
	ID       uuid.UUID   `json:"id"`
	Position int         `json:"position"`
	Item     ReceiptItem `json:"item"`
}

// StoredReceipt is a parsed receipt saved for later correction.
type StoredReceipt struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"user_id"`
	StoreID   *uuid.UUID   `json:"store_id,omitempty"`
	Items     []StoredItem `json:"items"`
	CreatedAt time.Time    `json:"created_at"`
}
