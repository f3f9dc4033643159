// Package parser reconstructs structured receipts from OCR text fragments.
// Everything here is pure: no I/O and no shared mutable state, so a Parser
// may be used from many goroutines at once.
package parser

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/receiptradar/internal/core/ocr"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// Parser assembles a ReceiptData from ordered fragments.
type Parser struct {
	segmenter *Segmenter
	logger    *slog.Logger
}

func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{segmenter: NewSegmenter(nil), logger: logger}
}

// Parse orders fragments by top-left Y, cleans them into lines and runs every
// extractor over the full line set. Lines are not consumed: a total line is
// skipped by the segmenter and still read by the totals extractor.
func (p *Parser) Parse(fragments []entity.TextFragment) entity.ReceiptData {
	lines := toLines(ocr.SortByY(fragments))
	out := p.assemble(lines)
	p.logger.Debug("parser.parse.ok",
		"fragments", len(fragments),
		"lines", len(lines),
		"items", len(out.Items),
		"store_found", out.StoreName != nil,
		"total_found", out.Total != nil,
	)
	return out
}

// ParseLines parses plain text lines given in reading order.
func (p *Parser) ParseLines(texts []string) entity.ReceiptData {
	return p.Parse(ocr.FromLines(texts))
}

func (p *Parser) assemble(lines []Line) entity.ReceiptData {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}

	out := entity.NewReceiptData()
	out.StoreName = ExtractStoreName(texts)
	out.Date = ExtractDate(texts)
	out.Items = p.segmenter.ExtractItems(lines)

	totals := ExtractTotals(texts)
	out.Subtotal, out.Tax, out.Total = totals.Subtotal, totals.Tax, totals.Total
	out.ReceiptNumber = ExtractReceiptNumber(texts)
	return out
}

func toLines(fragments []entity.TextFragment) []Line {
	lines := make([]Line, 0, len(fragments))
	for _, f := range fragments {
		cleaned := ocr.CleanText(f.Text)
		if !ocr.Usable(cleaned) {
			continue
		}
		lines = append(lines, Line{Text: cleaned, Raw: strings.TrimSpace(f.Text)})
	}
	return lines
}
