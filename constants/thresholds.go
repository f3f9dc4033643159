package constants

import "github.com/shopspring/decimal"

// Confidence tiers. Downstream consumers depend on these exact values.
const (
	ConfidenceLow    = 0.6
	ConfidenceMedium = 0.8
	ConfidenceHigh   = 0.9

	// ItemRejectConfidence drops segmented items scoring below it.
	ItemRejectConfidence = 0.3
	// ItemConfidenceCap bounds the additive item score.
	ItemConfidenceCap = 0.95
	// CategoryMatchThreshold is the minimum fuzzy score (0-100, exclusive).
	CategoryMatchThreshold = 80.0
	// DefaultMinFragmentConfidence is the upstream OCR filter default.
	DefaultMinFragmentConfidence = 0.5
)

// Lookback windows in days.
const (
	SavingsLookbackDays     = 30
	ComparisonLookbackDays  = 30
	PriceHistoryDefaultDays = 90
)

// Validator limits.
const (
	MaxPlausibleItemCount = 100
	TotalTolerance        = "0.01"
)

// PriceSourceReceipt marks price points captured from scanned receipts.
const PriceSourceReceipt = "receipt"

var (
	MinItemPrice          = decimal.RequireFromString("0.01")
	MaxItemPrice          = decimal.NewFromInt(10000)
	MaxConfidentItemPrice = decimal.NewFromInt(1000)
	MaxPlausibleTotal     = decimal.NewFromInt(10000)
)

// PriceRange anonymizes a price into a coarse bucket for basket snapshots.
func PriceRange(price decimal.Decimal) string {
	switch {
	case price.LessThan(decimal.NewFromInt(5)):
		return "0-5"
	case price.LessThan(decimal.NewFromInt(10)):
		return "5-10"
	case price.LessThan(decimal.NewFromInt(20)):
		return "10-20"
	case price.LessThan(decimal.NewFromInt(50)):
		return "20-50"
	default:
		return "50+"
	}
}

// ConfidenceTier labels a receipt-level confidence score.
func ConfidenceTier(score float64) string {
	switch {
	case score >= ConfidenceHigh:
		return "high"
	case score >= ConfidenceMedium:
		return "medium"
	case score >= ConfidenceLow:
		return "low"
	default:
		return "very_low"
	}
}
