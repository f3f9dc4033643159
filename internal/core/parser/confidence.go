package parser

import (
	"math"
	"regexp"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/shopspring/decimal"
)

var reTabular = regexp.MustCompile(`\s{2,}`)

// ItemConfidence is an additive heuristic, not a calibrated probability.
// rawLine is the line as the OCR engine produced it; runs of spaces there
// indicate column layout.
func ItemConfidence(name string, price decimal.Decimal, rawLine string, categorized bool) float64 {
	score := 0.5

	switch n := len([]rune(name)); {
	case n >= 3:
		score += 0.2
	case n >= 2:
		score += 0.1
	}
	if price.GreaterThanOrEqual(constants.MinItemPrice) && price.LessThanOrEqual(constants.MaxConfidentItemPrice) {
		score += 0.2
	}
	if reTabular.MatchString(rawLine) {
		score += 0.1
	}
	if categorized {
		score += 0.1
	}
	if !reNameNoise.MatchString(name) {
		score += 0.1
	}

	score = math.Min(score, constants.ItemConfidenceCap)
	return math.Round(score*100) / 100
}
