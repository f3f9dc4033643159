// Package llm asks a vision model to read a receipt image and falls back to
// the OCR parser when no model is configured, the call fails, or the answer
// carries nothing usable.
package llm

import (
	"context"

	"github.com/shopspring/decimal"
)

// VisionItem is one purchase line as returned by the model.
type VisionItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity float64         `json:"quantity,omitempty"`
	Category string          `json:"category,omitempty"`
}

// VisionReceipt is the JSON document the model is asked to produce.
type VisionReceipt struct {
	StoreName     string           `json:"store_name,omitempty"`
	Date          string           `json:"date,omitempty"` // YYYY-MM-DD
	Items         []VisionItem     `json:"items"`
	Subtotal      *decimal.Decimal `json:"subtotal,omitempty"`
	Tax           *decimal.Decimal `json:"tax,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	ReceiptNumber string           `json:"receipt_number,omitempty"`
}

// VisionExtractor is implemented by each model provider.
type VisionExtractor interface {
	// Name is the provider label reported in the parse method, e.g. "openai".
	Name() string
	ExtractReceipt(ctx context.Context, img Image) (VisionReceipt, []byte /*rawJSON*/, error)
}
