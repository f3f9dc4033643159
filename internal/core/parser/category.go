package parser

import (
	"strings"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/core/fuzzy"
)

// Categorizer assigns the category of the single best-scoring keyword.
type Categorizer struct {
	table     []constants.CategoryKeywords
	threshold float64
}

func NewCategorizer() *Categorizer {
	return &Categorizer{table: constants.CategoryTable(), threshold: constants.CategoryMatchThreshold}
}

// Categorize returns nil when no keyword scores above the threshold.
// A later keyword must score strictly higher to displace an earlier one,
// so ties go to the category listed first.
func (c *Categorizer) Categorize(name string) *constants.Category {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}
	var (
		best  float64
		found *constants.Category
	)
	for _, entry := range c.table {
		for _, kw := range entry.Keywords {
			score := fuzzy.PartialRatio(lower, kw)
			if score > best && score > c.threshold {
				best = score
				found = ptr(entry.Category)
			}
		}
	}
	return found
}
