package llm

// BuildReceiptJSONSchema returns the draft 2020-12 schema a vision answer must satisfy.
// It is sent to the model as guidance and compiled locally to validate the reply.
func BuildReceiptJSONSchema(allowedCategories []string) map[string]any {
	category := map[string]any{"type": "string", "minLength": 1}
	if len(allowedCategories) > 0 {
		category = map[string]any{"type": "string", "enum": allowedCategories}
	}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "minLength": 1},
			"price":    moneyProp(),
			"quantity": map[string]any{"type": "number", "minimum": 1},
			"category": category,
		},
		"required": []string{"name", "price"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"store_name":     map[string]any{"type": "string", "minLength": 1},
			"date":           map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"items":          map[string]any{"type": "array", "items": item},
			"subtotal":       moneyProp(),
			"tax":            moneyProp(),
			"total":          moneyProp(),
			"receipt_number": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"items"},
	}
}

func moneyProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0}
}
