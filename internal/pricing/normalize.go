// Package pricing normalizes item names and compares baskets against
// recorded price history.
package pricing

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// NormalizeItemName produces the matching key used on both sides of every
// price comparison: lower-cased, stop words and tokens of two or fewer
// characters removed, single-spaced.
func NormalizeItemName(name string) string {
	lower := cases.Lower(language.Und).String(strings.TrimSpace(name))
	tokens := strings.Fields(lower)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if utf8.RuneCountInString(tok) <= 2 {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
