package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

// VisionItemConfidence is assigned to every item read by a vision model.
const VisionItemConfidence = 1.0

// StripCodeFences removes a surrounding ```json ... ``` block if the model added one.
func StripCodeFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return []byte(s)
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return []byte(strings.TrimSpace(s))
}

// DecodeReceipt validates a model answer, sanitizing and re-validating once on a
// schema failure. It returns the accepted document alongside the decoded value.
func DecodeReceipt(raw []byte, logger *slog.Logger) (VisionReceipt, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc := StripCodeFences(raw)

	if err := ValidateReceiptJSON(doc); err != nil {
		cleaned, changed, sErr := SanitizeReceiptJSON(doc)
		if sErr != nil {
			return VisionReceipt{}, doc, common.NewAppError(common.CodeParse, "vision answer is not JSON", parseFailed(sErr))
		}
		if vErr := ValidateReceiptJSON(cleaned); vErr != nil {
			return VisionReceipt{}, cleaned, common.NewAppError(common.CodeParse, "vision answer does not match schema", parseFailed(vErr))
		}
		logger.Warn("llm.decode.sanitized", "changed", changed, "first_error", err.Error())
		doc = cleaned
	}

	var out VisionReceipt
	dec := json.NewDecoder(bytes.NewReader(doc))
	if err := dec.Decode(&out); err != nil {
		return VisionReceipt{}, doc, common.NewAppError(common.CodeParse, "decode vision answer", parseFailed(err))
	}
	return out, doc, nil
}

// ToReceiptData converts a vision answer into the common receipt shape. Categories
// are canonicalized; anything unrecognized is categorized by item name when
// categorize is non-nil.
func ToReceiptData(v VisionReceipt, categorize func(name string) *constants.Category) entity.ReceiptData {
	out := entity.NewReceiptData()
	if s := strings.TrimSpace(v.StoreName); s != "" {
		out.StoreName = &s
	}
	if d, err := time.Parse("2006-01-02", strings.TrimSpace(v.Date)); err == nil {
		out.Date = &d
	}
	if s := strings.TrimSpace(v.ReceiptNumber); s != "" {
		out.ReceiptNumber = &s
	}
	out.Subtotal = round2(v.Subtotal)
	out.Tax = round2(v.Tax)
	out.Total = round2(v.Total)

	for _, it := range v.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		q := int(math.Round(it.Quantity))
		if q < 1 {
			q = 1
		}
		item := entity.ReceiptItem{
			Name:       name,
			Price:      it.Price.Round(2),
			Quantity:   q,
			Confidence: VisionItemConfidence,
		}
		if c, ok := constants.Canonicalize(it.Category); ok {
			item.Category = &c
		} else if categorize != nil {
			item.Category = categorize(name)
		}
		out.Items = append(out.Items, item)
	}
	return out
}

// Usable reports whether a receipt carries anything worth keeping over an OCR parse.
func Usable(r entity.ReceiptData) bool {
	return len(r.Items) > 0 || r.Total != nil
}

func parseFailed(err error) error {
	return errors.Join(common.ErrParseFailed, err)
}

func round2(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}
