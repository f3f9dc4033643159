package llm

import (
	"encoding/json"
	"strings"
)

// BuildSystemPrompt composes the instruction sent ahead of the receipt image.
func BuildSystemPrompt(allowedCategories []string) string {
	var catLine string
	if len(allowedCategories) > 0 {
		catLine = "Give each item a 'category' from: " + strings.Join(allowedCategories, ", ") + ". Omit it if none fits."
	} else {
		catLine = "Give each item a short grocery 'category' if one is obvious."
	}
	parts := []string{
		"You read photographed grocery receipts. Return ONLY JSON that matches the JSON Schema provided.",
		"Fields: store_name, date (YYYY-MM-DD), items (name, price, quantity, category), subtotal, tax, total, receipt_number.",
		"price is the unit price as a number; quantity is a whole number, 1 when not printed.",
		"Money values are plain numbers without currency symbols.",
		"Skip lines that are totals, tax, payment, change or loyalty messages; they are not items.",
		catLine,
		"Never output null. If a field is not present, omit it.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt asks for the extraction and attaches the schema.
func BuildUserPrompt(filename string) string {
	var b strings.Builder
	if f := strings.TrimSpace(filename); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	b.WriteString("Extract the receipt shown in the attached image.\n\nJSON Schema:\n")
	b.WriteString(mustJSON(promptSchema()))
	return b.String()
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
