package merge

import (
	"github.com/poextract/poextract/internal/entity"
)

// LineItems concatenates every chunk's line items in chunk order and drops
// exact-tuple duplicates, keeping the first occurrence. Idempotent: merging a
// list with itself yields the same set as merging it once.
func LineItems(chunks []entity.ExtractionPayload) []entity.LineItem {
	seen := make(map[string]struct{})
	out := make([]entity.LineItem, 0)
	for _, chunk := range chunks {
		for _, li := range chunk.LineItems {
			key := li.DedupKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, li)
		}
	}
	return out
}

// headerField is one extractable header attribute. Each field is resolved by
// evaluating chunks in priority order (chunk 1 first) and taking the first
// non-empty value, so every field's fallback chain is explicit and
// independently testable.
type headerField struct {
	name string
	get  func(entity.ExtractionPayload) string
	set  func(*entity.ExtractionPayload, string)
}

var headerFields = []headerField{
	{"po_number",
		func(p entity.ExtractionPayload) string { return p.PONumber },
		func(p *entity.ExtractionPayload, v string) { p.PONumber = v }},
	{"supplier",
		func(p entity.ExtractionPayload) string { return p.Supplier },
		func(p *entity.ExtractionPayload, v string) { p.Supplier = v }},
	{"supplier_contact",
		func(p entity.ExtractionPayload) string { return p.SupplierContact },
		func(p *entity.ExtractionPayload, v string) { p.SupplierContact = v }},
	{"order_date",
		func(p entity.ExtractionPayload) string { return p.OrderDate },
		func(p *entity.ExtractionPayload, v string) { p.OrderDate = v }},
	{"delivery_date",
		func(p entity.ExtractionPayload) string { return p.DeliveryDate },
		func(p *entity.ExtractionPayload, v string) { p.DeliveryDate = v }},
	{"currency_code",
		func(p entity.ExtractionPayload) string { return p.CurrencyCode },
		func(p *entity.ExtractionPayload, v string) { p.CurrencyCode = v }},
	{"subtotal",
		func(p entity.ExtractionPayload) string { return p.Subtotal },
		func(p *entity.ExtractionPayload, v string) { p.Subtotal = v }},
	{"tax",
		func(p entity.ExtractionPayload) string { return p.Tax },
		func(p *entity.ExtractionPayload, v string) { p.Tax = v }},
	{"shipping",
		func(p entity.ExtractionPayload) string { return p.Shipping },
		func(p *entity.ExtractionPayload, v string) { p.Shipping = v }},
	{"total",
		func(p entity.ExtractionPayload) string { return p.Total },
		func(p *entity.ExtractionPayload, v string) { p.Total = v }},
}

// firstNonEmpty resolves one field across candidates in priority order.
func firstNonEmpty(f headerField, candidates []entity.ExtractionPayload) string {
	for _, c := range candidates {
		if v := f.get(c); v != "" {
			return v
		}
	}
	return ""
}

// Payloads combines per-chunk payloads into one result. Chunk 1 is the most
// authoritative source for header and totals; later chunks only fill fields
// chunk 1 left empty (totals often print on the last page only). Line items
// are the deduplicated union; issues concatenate in chunk order.
func Payloads(chunks []entity.ExtractionPayload) entity.ExtractionPayload {
	if len(chunks) == 0 {
		return entity.ExtractionPayload{LineItems: []entity.LineItem{}}
	}

	var merged entity.ExtractionPayload
	for _, f := range headerFields {
		if v := firstNonEmpty(f, chunks); v != "" {
			f.set(&merged, v)
		}
	}

	merged.LineItems = LineItems(chunks)

	var issues []string
	for _, c := range chunks {
		issues = append(issues, c.Issues...)
	}
	merged.Issues = issues

	merged.Confidence = chunks[0].Confidence
	if merged.Confidence == 0 {
		for _, c := range chunks[1:] {
			if c.Confidence > 0 {
				merged.Confidence = c.Confidence
				break
			}
		}
	}
	merged.Usage = chunks[0].Usage
	for _, c := range chunks[1:] {
		merged.Usage.PromptTokens += c.Usage.PromptTokens
		merged.Usage.CompletionTokens += c.Usage.CompletionTokens
		merged.Usage.TotalTokens += c.Usage.TotalTokens
	}
	return merged
}
