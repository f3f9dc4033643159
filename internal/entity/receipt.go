package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ReceiptItem is one segmented purchase line.
type ReceiptItem struct {
	Name       string              `json:"name"`
	Price      decimal.Decimal     `json:"price"`
	Quantity   int                 `json:"quantity"`
	Category   *constants.Category `json:"category"`
	Confidence float64             `json:"confidence"`
}

// LineTotal is price multiplied by quantity.
func (i ReceiptItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i ReceiptItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name       string              `json:"name"`
		Price      json.Number         `json:"price"`
		Quantity   int                 `json:"quantity"`
		Category   *constants.Category `json:"category"`
		Confidence float64             `json:"confidence"`
	}{i.Name, json.Number(i.Price.StringFixed(2)), i.Quantity, i.Category, i.Confidence})
}

// ReceiptData is a reconstructed receipt. Absent fields are nil; Items is never nil.
type ReceiptData struct {
	StoreName     *string
	Date          *time.Time
	Items         []ReceiptItem
	Subtotal      *decimal.Decimal
	Tax           *decimal.Decimal
	Total         *decimal.Decimal
	ReceiptNumber *string
}

// NewReceiptData returns an empty receipt with a non-nil item list.
func NewReceiptData() ReceiptData {
	return ReceiptData{Items: []ReceiptItem{}}
}

// ItemsTotal sums price*quantity over all items.
func (r ReceiptData) ItemsTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range r.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

type receiptJSON struct {
	StoreName     *string       `json:"store_name"`
	Date          string        `json:"date"`
	Items         []ReceiptItem `json:"items"`
	Subtotal      *json.Number  `json:"subtotal"`
	Tax           *json.Number  `json:"tax"`
	Total         *json.Number  `json:"total"`
	ReceiptNumber *string       `json:"receipt_number"`
}

func (r ReceiptData) MarshalJSON() ([]byte, error) {
	out := receiptJSON{
		StoreName:     r.StoreName,
		Items:         r.Items,
		Subtotal:      number(r.Subtotal),
		Tax:           number(r.Tax),
		Total:         number(r.Total),
		ReceiptNumber: r.ReceiptNumber,
	}
	if out.Items == nil {
		out.Items = []ReceiptItem{}
	}
	if r.Date != nil {
		out.Date = r.Date.Format(dateLayout)
	}
	return json.Marshal(out)
}

func (r *ReceiptData) UnmarshalJSON(b []byte) error {
	var in struct {
		StoreName     *string          `json:"store_name"`
		Date          string           `json:"date"`
		Items         []itemJSON       `json:"items"`
		Subtotal      *decimal.Decimal `json:"subtotal"`
		Tax           *decimal.Decimal `json:"tax"`
		Total         *decimal.Decimal `json:"total"`
		ReceiptNumber *string          `json:"receipt_number"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = NewReceiptData()
	r.StoreName = in.StoreName
	r.Subtotal, r.Tax, r.Total = in.Subtotal, in.Tax, in.Total
	r.ReceiptNumber = in.ReceiptNumber
	if in.Date != "" {
		d, err := time.Parse(dateLayout, in.Date)
		if err != nil {
			return fmt.Errorf("receipt date %q: %w", in.Date, err)
		}
		r.Date = &d
	}
	for _, it := range in.Items {
		q := it.Quantity
		if q < 1 {
			q = 1
		}
		r.Items = append(r.Items, ReceiptItem{
			Name:       it.Name,
			Price:      it.Price,
			Quantity:   q,
			Category:   it.Category,
			Confidence: it.Confidence,
		})
	}
	return nil
}

type itemJSON struct {
	Name       string              `json:"name"`
	Price      decimal.Decimal     `json:"price"`
	Quantity   int                 `json:"quantity"`
	Category   *constants.Category `json:"category"`
	Confidence float64             `json:"confidence"`
}

func number(d *decimal.Decimal) *json.Number {
	if d == nil {
		return nil
	}
	n := json.Number(d.StringFixed(2))
	return &n
}
