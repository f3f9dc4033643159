package parser

import (
	"fmt"
	"math"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/shopspring/decimal"
)

const (
	IssueNoStore = "Store name not detected"
	IssueNoTotal = "Total amount not detected or invalid"
	IssueNoItems = "No items detected"

	WarnHighTotal     = "Total amount seems unusually high"
	WarnManyItems     = "Unusually high number of items"
	warnTotalMismatch = "Total mismatch: calculated $%s, receipt shows $%s"
	warnLowConfidence = "%d items have low confidence scores"
)

var totalTolerance = decimal.RequireFromString(constants.TotalTolerance)

// Validate is advisory: it never alters the receipt. The confidence score is
// a sum of presence weights, a relative quality signal rather than a probability.
func Validate(r entity.ReceiptData) entity.ValidationReport {
	rep := entity.ValidationReport{IsValid: true, Issues: []string{}, Warnings: []string{}}
	fail := func(msg string) {
		rep.IsValid = false
		rep.Issues = append(rep.Issues, msg)
	}

	if r.StoreName == nil {
		fail(IssueNoStore)
	}
	if r.Total == nil || !r.Total.IsPositive() {
		fail(IssueNoTotal)
	}
	if len(r.Items) == 0 {
		fail(IssueNoItems)
	}

	if r.Total != nil && r.Total.GreaterThan(constants.MaxPlausibleTotal) {
		rep.Warnings = append(rep.Warnings, WarnHighTotal)
	}
	if len(r.Items) > constants.MaxPlausibleItemCount {
		rep.Warnings = append(rep.Warnings, WarnManyItems)
	}
	if r.Total != nil && len(r.Items) > 0 {
		calc := r.ItemsTotal()
		if calc.Sub(*r.Total).Abs().GreaterThan(totalTolerance) {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf(warnTotalMismatch, calc.StringFixed(2), r.Total.StringFixed(2)))
		}
	}
	low := 0
	for _, it := range r.Items {
		if it.Confidence < constants.ConfidenceLow {
			low++
		}
	}
	if low > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf(warnLowConfidence, low))
	}

	score := 0.0
	if r.StoreName != nil {
		score += 0.2
	}
	if r.Date != nil {
		score += 0.15
	}
	if r.Total != nil && r.Total.IsPositive() {
		score += 0.25
	}
	if n := len(r.Items); n > 0 {
		score += math.Min(0.4, float64(n)*0.02)
	}
	rep.ConfidenceScore = math.Round(score*100) / 100
	return rep
}
