package entity

import "strings"

// LineItem is a single row extracted from a purchase-order table.
// All fields are optional; money and quantity values are normalized decimal strings.
type LineItem struct {
	ProductCode *string `json:"product_code,omitempty"`
	Description *string `json:"description,omitempty"`
	Quantity    *string `json:"quantity,omitempty"`
	UnitPrice   *string `json:"unit_price,omitempty"`
	Total       *string `json:"total,omitempty"`
}

// DedupKey is the composite identity tuple used when merging chunks.
// Absent fields collapse to the empty string so (nil, "ACME", nil...) and
// ("", "ACME", "", ...) are the same row.
func (li LineItem) DedupKey() string {
	return strings.Join([]string{
		deref(li.ProductCode),
		deref(li.Description),
		deref(li.Quantity),
		deref(li.UnitPrice),
		deref(li.Total),
	}, "|")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// TokenUsage mirrors the usage block of a model response. Passed through for
// cost/rate tracking by the caller; not interpreted here.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExtractionPayload is the structured result of one model call (one chunk).
type ExtractionPayload struct {
	PONumber        string     `json:"po_number,omitempty"`
	Supplier        string     `json:"supplier,omitempty"`
	SupplierContact string     `json:"supplier_contact,omitempty"`
	OrderDate       string     `json:"order_date,omitempty"`    // YYYY-MM-DD
	DeliveryDate    string     `json:"delivery_date,omitempty"` // YYYY-MM-DD
	CurrencyCode    string     `json:"currency_code,omitempty"` // ISO 4217
	Subtotal        string     `json:"subtotal,omitempty"`
	Tax             string     `json:"tax,omitempty"`
	Shipping        string     `json:"shipping,omitempty"`
	Total           string     `json:"total,omitempty"`
	LineItems       []LineItem `json:"line_items"`
	Issues          []string   `json:"issues,omitempty"`
	Confidence      float64    `json:"confidence,omitempty"` // model-reported, 0..1

	Usage TokenUsage `json:"-"`
}

// Empty reports whether the payload carries no usable extraction data.
func (p ExtractionPayload) Empty() bool {
	return p.PONumber == "" && p.Supplier == "" && p.Total == "" && len(p.LineItems) == 0
}

// ConfidenceProfile carries both representations of overall confidence plus
// per-field scores. Overall == round(Normalized*100) always.
type ConfidenceProfile struct {
	Overall    int                `json:"overall"`    // 0..100
	Normalized float64            `json:"normalized"` // 0..1
	PerField   map[string]float64 `json:"per_field"`
}

// MergedExtraction is the orchestrator's final result: chunk 1's header and
// totals with the deduplicated union of every chunk's line items.
type MergedExtraction struct {
	ExtractionPayload

	ChunksPlanned   int               `json:"chunks_planned"`
	ChunksSucceeded int               `json:"chunks_succeeded"`
	ChunksFailed    int               `json:"chunks_failed"`
	Score           ConfidenceProfile `json:"confidence_profile"`
}

// QualityLevel grades a single document-quality indicator.
type QualityLevel string

const (
	QualityHigh   QualityLevel = "high"
	QualityMedium QualityLevel = "medium"
	QualityLow    QualityLevel = "low"
)

// Weight maps a level onto the scorer's 0..1 scale.
func (q QualityLevel) Weight() float64 {
	switch q {
	case QualityHigh:
		return 1.0
	case QualityMedium:
		return 0.6
	case QualityLow:
		return 0.3
	default:
		return 0.6
	}
}

// QualityIndicators describe the source document, typically reported by the
// upstream OCR/ingest stage. Zero value means "unknown" and grades medium.
type QualityIndicators struct {
	ImageClarity   QualityLevel `json:"image_clarity,omitempty"`
	TextLegibility QualityLevel `json:"text_legibility,omitempty"`
	Completeness   QualityLevel `json:"completeness,omitempty"`
}

// Composite averages the three indicator weights.
func (q QualityIndicators) Composite() float64 {
	return (q.ImageClarity.Weight() + q.TextLegibility.Weight() + q.Completeness.Weight()) / 3
}
