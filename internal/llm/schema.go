package llm

// BuildPurchaseOrderJSONSchema returns a JSON-Schema (draft 2020-12 subset) as
// a generic map. We pass this to the model as a structured output constraint
// and also use it locally to validate replies.
func BuildPurchaseOrderJSONSchema() map[string]any {
	lineItem := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"product_code": map[string]any{"type": "string"},
			"description":  map[string]any{"type": "string"},
			"quantity":     decimalProp(),
			"unit_price":   decimalProp(),
			"total":        decimalProp(),
		},
	}

	props := map[string]any{
		"po_number":        map[string]any{"type": "string"},
		"supplier":         map[string]any{"type": "string"},
		"supplier_contact": map[string]any{"type": "string"},
		"order_date":       dateProp(),
		"delivery_date":    dateProp(),
		"currency_code":    map[string]any{"type": "string", "minLength": 3, "maxLength": 3},
		"subtotal":         decimalProp(),
		"tax":              decimalProp(),
		"shipping":         decimalProp(),
		"total":            decimalProp(),
		"line_items":       map[string]any{"type": "array", "items": lineItem},
		"issues":           map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"confidence":       map[string]any{"type": "number", "minimum": 0.0},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"line_items"},
	}
}

// PurchaseOrderSchemaName labels the output schema in structured-output requests.
const PurchaseOrderSchemaName = "purchase_order_extraction"

func decimalProp() map[string]any {
	return map[string]any{
		"type":    "string",
		"pattern": `^-?\d+(\.\d{1,4})?$`,
	}
}

func dateProp() map[string]any {
	return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
}
