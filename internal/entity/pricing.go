package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricePoint is one observed price, keyed by (StoreID, ItemName, Date, Source).
type PricePoint struct {
	StoreID         uuid.UUID       `json:"store_id"`
	StoreName       string          `json:"store_name,omitempty"`
	StoreActive     bool            `json:"store_active"`
	ItemName        string          `json:"item_name"`
	Price           decimal.Decimal `json:"price"`
	Date            time.Time       `json:"date"`
	Source          string          `json:"source"`
	ConfidenceScore float64         `json:"confidence_score"`
	Volume          *string         `json:"volume,omitempty"`
	ImageURL        *string         `json:"image_url,omitempty"`
}

// SavingsOpportunity is a basket item with a strictly cheaper recorded price.
type SavingsOpportunity struct {
	ItemName           string          `json:"item_name"`
	CurrentPrice       decimal.Decimal `json:"current_price"`
	BestPrice          decimal.Decimal `json:"best_price"`
	Savings            decimal.Decimal `json:"savings"`
	StoreName          string          `json:"store_name"`
	Confidence         float64         `json:"confidence"`
	PriceHistoryPoints int             `json:"price_history_points"`
}

// BasketAnalysis aggregates savings across a basket.
type BasketAnalysis struct {
	TotalSavings         decimal.Decimal      `json:"total_savings"`
	SavingsOpportunities []SavingsOpportunity `json:"savings_opportunities"`
	StoreRecommendation  *string              `json:"store_recommendation"`
	CashbackAvailable    decimal.Decimal      `json:"cashback_available"`
}

// EmptyBasketAnalysis is the zero-value result.
func EmptyBasketAnalysis() BasketAnalysis {
	return BasketAnalysis{
		TotalSavings:         decimal.Zero,
		SavingsOpportunities: []SavingsOpportunity{},
		CashbackAvailable:    decimal.Zero,
	}
}

// StorePriceStats is one store's aggregate over the comparison window.
type StorePriceStats struct {
	StoreID     uuid.UUID       `json:"store_id"`
	StoreName   string          `json:"store_name"`
	MinPrice    decimal.Decimal `json:"min_price"`
	MaxPrice    decimal.Decimal `json:"max_price"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	PricePoints int             `json:"price_points"`
}

// CashbackOffer is a store promotion. A nil ItemName applies to every item.
type CashbackOffer struct {
	ID                 uuid.UUID        `json:"id"`
	StoreID            uuid.UUID        `json:"store_id"`
	ItemName           *string          `json:"item_name,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	ValidFrom          time.Time        `json:"valid_from"`
	ValidUntil         time.Time        `json:"valid_until"`
	Active             bool             `json:"active"`
	Description        string           `json:"description,omitempty"`
}

// Value is the discount the offer gives on price. A non-zero flat amount wins
// over a percentage.
func (o CashbackOffer) Value(price decimal.Decimal) decimal.Decimal {
	if o.DiscountAmount != nil && !o.DiscountAmount.IsZero() {
		return *o.DiscountAmount
	}
	if o.DiscountPercentage != nil {
		return price.Mul(*o.DiscountPercentage).Div(decimal.NewFromInt(100))
	}
	return decimal.Zero
}

// ValidOn reports whether the offer can be applied on day.
func (o CashbackOffer) ValidOn(day time.Time) bool {
	d := truncateDay(day)
	return o.Active && !d.Before(truncateDay(o.ValidFrom)) && !d.After(truncateDay(o.ValidUntil))
}

// SnapshotItem is one anonymized basket line.
type SnapshotItem struct {
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	PriceRange string          `json:"price_range"`
}

// BasketSnapshot is the anonymized copy of a receipt kept for aggregate analysis.
type BasketSnapshot struct {
	ID               uuid.UUID       `json:"id"`
	UserAnonymizedID string          `json:"user_anonymized_id"`
	StoreID          uuid.UUID       `json:"store_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ItemCount        int             `json:"item_count"`
	Date             time.Time       `json:"date"`
	Items            []SnapshotItem  `json:"items"`
}

// PriceBatch is written atomically: all points plus the snapshot, or nothing.
type PriceBatch struct {
	UserID   uuid.UUID
	StoreID  uuid.UUID
	Points   []PricePoint
	Snapshot BasketSnapshot
}

// Store is a retailer known to the price history.
type Store struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Chain    string    `json:"chain,omitempty"`
	Location string    `json:"location,omitempty"`
	Active   bool      `json:"active"`
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Day returns t truncated to a UTC calendar date.
func Day(t time.Time) time.Time {
	return truncateDay(t)
}
