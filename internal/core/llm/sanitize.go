package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reISODate   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	moneyFields = []string{"subtotal", "tax", "total"}
	textFields  = []string{"store_name", "receipt_number"}
	dateLayouts = []string{"2006/01/02", "02/01/2006", "2/1/2006", "02-01-2006", "02.01.2006", "2 Jan 2006"}
	knownKeys   = map[string]struct{}{
		"store_name": {}, "date": {}, "items": {}, "subtotal": {},
		"tax": {}, "total": {}, "receipt_number": {},
	}
)

// SanitizeReceiptJSON repairs the common ways a model drifts from the receipt schema.
// Optional fields that are null, empty or malformed are dropped; numeric strings
// become numbers; items without a name or a usable price are removed and a
// quantity below one becomes one. The returned slice names what was changed.
func SanitizeReceiptJSON(doc []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var changed []string
	note := func(s string) { changed = append(changed, s) }

	for k := range m {
		if _, ok := knownKeys[k]; !ok {
			delete(m, k)
			note(k + "(unknown)")
		}
	}

	for _, k := range textFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			s := strings.TrimSpace(t)
			if s == "" || strings.EqualFold(s, "null") {
				delete(m, k)
				note(k + "(empty)")
			} else {
				m[k] = s
			}
		case float64:
			m[k] = strconv.FormatFloat(t, 'f', -1, 64)
			note(k + "(number)")
		default:
			delete(m, k)
			note(k + "(type)")
		}
	}

	if v, ok := m["date"]; ok {
		s, _ := v.(string)
		s = strings.TrimSpace(s)
		switch {
		case reISODate.MatchString(s):
			m["date"] = s
		case parseLooseDate(s) != "":
			m["date"] = parseLooseDate(s)
			note("date(reformatted)")
		default:
			delete(m, "date")
			note("date(invalid)")
		}
	}

	for _, k := range moneyFields {
		v, ok := m[k]
		if !ok {
			continue
		}
		if f, ok := coerceMoney(v); ok {
			m[k] = f
		} else {
			delete(m, k)
			note(k + "(invalid)")
		}
	}

	rawItems, _ := m["items"].([]any)
	items := make([]any, 0, len(rawItems))
	for i, ri := range rawItems {
		it, ok := ri.(map[string]any)
		if !ok {
			note(fmt.Sprintf("items[%d](type)", i))
			continue
		}
		name, _ := it["name"].(string)
		name = strings.TrimSpace(name)
		price, priceOK := coerceMoney(it["price"])
		if name == "" || !priceOK {
			note(fmt.Sprintf("items[%d](dropped)", i))
			continue
		}
		clean := map[string]any{"name": name, "price": price}

		if q, ok := it["quantity"]; ok && q != nil {
			f, ok := coerceMoney(q)
			if !ok || f < 1 {
				f = 1
				note(fmt.Sprintf("items[%d].quantity", i))
			}
			clean["quantity"] = math.Round(f)
		}
		if c, ok := it["category"].(string); ok && strings.TrimSpace(c) != "" {
			clean["category"] = strings.TrimSpace(c)
		}
		items = append(items, clean)
	}
	if _, isList := m["items"].([]any); !isList {
		note("items(missing)")
	}
	m["items"] = items

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, changed, nil
}

// coerceMoney accepts a JSON number or a numeric string such as "$4.50" or "1,299.00".
func coerceMoney(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, t >= 0 && !math.IsInf(t, 0) && !math.IsNaN(t)
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func parseLooseDate(s string) string {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return ""
}
