package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/poextract/poextract/internal/entity"
)

// NotPurchaseOrderIssue is the issue recorded on a typed empty result.
const NotPurchaseOrderIssue = "document is not a valid purchase order"

var notPOPhrases = []string{
	"not a valid purchase order",
	"not a purchase order",
	"no purchase order found",
	"does not appear to be a purchase order",
}

var reFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// Parse extracts a structured payload from a raw model reply. It tolerates
// markdown fencing, comments inside the JSON, and trailing commas. A reply
// that carries no JSON but states the document is not a purchase order yields
// a typed empty result instead of an error.
func Parse(raw string, logger *slog.Logger) (entity.ExtractionPayload, error) {
	if logger == nil {
		logger = slog.Default()
	}

	block, ok := extractJSONBlock(raw)
	if !ok {
		if p, ok := notPurchaseOrder(raw); ok {
			logger.Warn("llm.parse.not_purchase_order", "reply_len", len(raw))
			return p, nil
		}
		return entity.ExtractionPayload{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}

	cleaned := stripTrailingCommas(stripComments(block))

	sanitized, dropped, err := sanitizePayloadJSON([]byte(cleaned))
	if err != nil {
		if p, ok := notPurchaseOrder(raw); ok {
			logger.Warn("llm.parse.not_purchase_order", "reply_len", len(raw))
			return p, nil
		}
		return entity.ExtractionPayload{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(dropped) > 0 {
		logger.Warn("llm.parse.sanitize_applied", "dropped", dropped)
	}

	if err := ValidateJSONAgainstSchema(BuildPurchaseOrderJSONSchema(), sanitized); err != nil {
		return entity.ExtractionPayload{}, fmt.Errorf("%w: schema validation: %v", ErrMalformedResponse, err)
	}

	var out entity.ExtractionPayload
	if err := json.Unmarshal(sanitized, &out); err != nil {
		return entity.ExtractionPayload{}, fmt.Errorf("%w: unmarshal payload: %v", ErrMalformedResponse, err)
	}
	if out.LineItems == nil {
		out.LineItems = []entity.LineItem{}
	}
	return out, nil
}

func notPurchaseOrder(raw string) (entity.ExtractionPayload, bool) {
	lower := strings.ToLower(raw)
	for _, phrase := range notPOPhrases {
		if strings.Contains(lower, phrase) {
			return entity.ExtractionPayload{
				LineItems:  []entity.LineItem{},
				Issues:     []string{NotPurchaseOrderIssue},
				Confidence: 0,
			}, true
		}
	}
	return entity.ExtractionPayload{}, false
}

// extractJSONBlock unwraps markdown fences, then falls back to the outermost
// brace span.
func extractJSONBlock(raw string) (string, bool) {
	if m := reFence.FindStringSubmatch(raw); m != nil && strings.Contains(m[1], "{") {
		raw = m[1]
	}
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// stripComments removes // line and /* */ block comments outside strings.
func stripComments(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i++ // skip the closing '/'
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// stripTrailingCommas drops commas that directly precede a closing bracket.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\t' || s[j] == '\n' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue // drop the comma
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

var allowedTopLevel = map[string]struct{}{
	"po_number": {}, "supplier": {}, "supplier_contact": {},
	"order_date": {}, "delivery_date": {}, "currency_code": {},
	"subtotal": {}, "tax": {}, "shipping": {}, "total": {},
	"line_items": {}, "issues": {}, "confidence": {},
}

var allowedItemKeys = map[string]struct{}{
	"product_code": {}, "description": {}, "quantity": {}, "unit_price": {}, "total": {},
}

var topLevelMoney = []string{"subtotal", "tax", "shipping", "total"}

// sanitizePayloadJSON
// - Renames known synonyms (items -> line_items)
// - Drops null/empty optionals and unknown keys
// - Coerces numeric -> string for money and quantity fields
func sanitizePayloadJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}

	dropped := make([]string, 0, 8)

	// legacy alias from older prompt revisions
	if v, ok := m["items"]; ok {
		if _, exists := m["line_items"]; !exists {
			m["line_items"] = v
		}
		delete(m, "items")
		dropped = append(dropped, "items->line_items")
	}

	for _, k := range topLevelMoney {
		coerceDecimal(m, k, &dropped)
	}
	if v, ok := m["currency_code"].(string); ok {
		m["currency_code"] = strings.ToUpper(strings.TrimSpace(v))
	}

	if items, ok := m["line_items"].([]any); ok {
		clean := make([]any, 0, len(items))
		for _, it := range items {
			im, ok := it.(map[string]any)
			if !ok {
				dropped = append(dropped, "line_item(non-object)")
				continue
			}
			for _, k := range []string{"quantity", "unit_price", "total"} {
				coerceDecimal(im, k, &dropped)
			}
			for _, k := range []string{"product_code", "description"} {
				trimOrDrop(im, k, &dropped)
			}
			for k := range maps.Clone(im) {
				if _, ok := allowedItemKeys[k]; !ok {
					delete(im, k)
					dropped = append(dropped, "line_item."+k+"(unknown)")
				}
			}
			clean = append(clean, im)
		}
		m["line_items"] = clean
	} else if m["line_items"] == nil {
		m["line_items"] = []any{}
	}

	for _, k := range []string{"po_number", "supplier", "supplier_contact", "order_date", "delivery_date"} {
		trimOrDrop(m, k, &dropped)
	}

	for _, k := range []string{"order_date", "delivery_date"} {
		if s, ok := m[k].(string); ok && !reISODate.MatchString(s) {
			delete(m, k)
			dropped = append(dropped, k+"(format)")
		}
	}

	if raw, ok := m["issues"].([]any); ok {
		strs := make([]any, 0, len(raw))
		for _, v := range raw {
			if s, ok := v.(string); ok {
				strs = append(strs, s)
			} else {
				dropped = append(dropped, "issues(non-string)")
			}
		}
		m["issues"] = strs
	}

	for k := range maps.Clone(m) {
		if _, ok := allowedTopLevel[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("encode: %w", err)
	}
	return out, dropped, nil
}

var (
	reDecimal = regexp.MustCompile(`^-?\d+(\.\d{1,4})?$`)
	reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

func coerceDecimal(m map[string]any, k string, dropped *[]string) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			m[k] = strconv.FormatInt(int64(t), 10)
		} else {
			m[k] = fmt.Sprintf("%.2f", t)
		}
	case string:
		s := strings.TrimSpace(strings.TrimLeft(t, "$£€ "))
		s = strings.ReplaceAll(s, ",", "")
		if s == "" || strings.EqualFold(s, "null") {
			delete(m, k)
			*dropped = append(*dropped, k+"(empty)")
			return
		}
		if !reDecimal.MatchString(s) {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				m[k] = fmt.Sprintf("%.2f", f)
				return
			}
			delete(m, k)
			*dropped = append(*dropped, k+"(unparseable)")
			return
		}
		m[k] = s
	case nil:
		delete(m, k)
		*dropped = append(*dropped, k+"(null)")
	default:
		delete(m, k)
		*dropped = append(*dropped, k+"(type)")
	}
}

func trimOrDrop(m map[string]any, k string, dropped *[]string) {
	v, ok := m[k]
	if !ok {
		return
	}
	s, isStr := v.(string)
	if !isStr {
		delete(m, k)
		*dropped = append(*dropped, k+"(type)")
		return
	}
	s = strings.TrimSpace(s)
	if s == "" {
		delete(m, k)
		*dropped = append(*dropped, k+"(empty)")
		return
	}
	m[k] = s
}
