package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/shopspring/decimal"
)

// Line is one receipt line: Text is cleaned, Raw is the trimmed OCR output.
type Line struct {
	Text string
	Raw  string
}

// NewLines wraps plain strings whose cleaned and raw forms are the same.
func NewLines(texts []string) []Line {
	out := make([]Line, len(texts))
	for i, t := range texts {
		out[i] = Line{Text: t, Raw: t}
	}
	return out
}

// skipKeywords mark header and summary lines that never hold an item.
var skipKeywords = []string{
	"receipt", "invoice", "total", "subtotal", "tax", "gst", "change", "card", "cash",
	"amount due", "balance",
}

// pricePatterns are tried most specific first.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$?\s*(\d+\.\d{2})`),
	regexp.MustCompile(`\$?\s*(\d+\.\d{1})`),
	regexp.MustCompile(`\$?\s*(\d+)`),
	regexp.MustCompile(`(\d+\.\d{2})\s*$`),
	regexp.MustCompile(`(\d+\.\d{1})\s*$`),
}

var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*x\s*`),
	regexp.MustCompile(`(?i)(\d+)\s*@\s*`),
	regexp.MustCompile(`(?i)QTY\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*PKT`),
	regexp.MustCompile(`(?i)(\d+)\s*PACK`),
}

var (
	reNameNoise    = regexp.MustCompile(`[^\p{L}\p{N}_\s\p{Z}.\-&()]`)
	reSpaces       = regexp.MustCompile(`[\s\p{Z}]+`)
	reLeadingQty   = regexp.MustCompile(`(?i)^(QTY|QTY:|QTY\s+\d+|X\s*\d+)\s*`)
	reTrailingUnit = regexp.MustCompile(`(?i)\s+(EACH|PER|UNIT|KG|L|PACK|PKT)\s*$`)
)

// Segmenter splits candidate lines into items.
type Segmenter struct {
	categorizer *Categorizer
}

func NewSegmenter(c *Categorizer) *Segmenter {
	if c == nil {
		c = NewCategorizer()
	}
	return &Segmenter{categorizer: c}
}

// IsSkipLine reports whether a line is header or summary text.
func IsSkipLine(text string) bool {
	return containsAny(strings.ToLower(text), skipKeywords)
}

// ExtractItems segments every non-header line. Rejected lines are dropped silently.
func (s *Segmenter) ExtractItems(lines []Line) []entity.ReceiptItem {
	items := []entity.ReceiptItem{}
	for _, ln := range lines {
		if IsSkipLine(ln.Text) {
			continue
		}
		if it, ok := s.Segment(ln); ok {
			items = append(items, it)
		}
	}
	return items
}

// Segment anchors on a price token and treats the text before it as the item name.
func (s *Segmenter) Segment(ln Line) (entity.ReceiptItem, bool) {
	price, start, ok := locatePrice(ln.Text)
	if !ok {
		return entity.ReceiptItem{}, false
	}

	name := cleanName(strings.TrimSpace(ln.Text[:start]))
	name, qty := extractQuantity(name)
	if len([]rune(name)) < 2 {
		return entity.ReceiptItem{}, false
	}

	cat := s.categorizer.Categorize(name)
	conf := ItemConfidence(name, price, ln.Raw, cat != nil)
	if conf < constants.ItemRejectConfidence {
		return entity.ReceiptItem{}, false
	}

	return entity.ReceiptItem{
		Name:       name,
		Price:      price,
		Quantity:   qty,
		Category:   cat,
		Confidence: conf,
	}, true
}

// locatePrice returns the first in-range value and the byte offset where its match starts.
func locatePrice(text string) (decimal.Decimal, int, bool) {
	for _, re := range pricePatterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil {
			continue
		}
		v, err := decimal.NewFromString(text[loc[2]:loc[3]])
		if err != nil {
			continue
		}
		if v.LessThan(constants.MinItemPrice) || v.GreaterThan(constants.MaxItemPrice) {
			continue
		}
		return v, loc[0], true
	}
	return decimal.Decimal{}, 0, false
}

func cleanName(s string) string {
	s = reNameNoise.ReplaceAllString(s, "")
	s = reSpaces.ReplaceAllString(s, " ")
	s = reLeadingQty.ReplaceAllString(s, "")
	s = reTrailingUnit.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// extractQuantity reads a multiplier from the name and strips it when above one.
func extractQuantity(name string) (string, int) {
	qty := 1
	for _, re := range quantityPatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			qty = n
		}
		break
	}
	if qty == 1 {
		return name, qty
	}
	for _, tmpl := range []string{`%d\s*x\s*`, `%d\s*@\s*`, `QTY\s*%d`, `%d\s*PKT`, `%d\s*PACK`} {
		re := regexp.MustCompile("(?i)" + fmt.Sprintf(tmpl, qty))
		name = re.ReplaceAllString(name, "")
	}
	name = reSpaces.ReplaceAllString(name, " ")
	return strings.TrimSpace(name), qty
}
