package constants

import "regexp"

// Signal identifies a domain key signal that normalization must never erase.
type Signal string

// Stable values (these exact strings appear in fallback reason codes).
const (
	SignalPONumber Signal = "po_number"
	SignalInvoice  Signal = "invoice"
	SignalSupplier Signal = "supplier"
	SignalTotals   Signal = "totals"
	SignalTable    Signal = "line_item_table"
)

// KeySignalPatterns maps each signal to the regex that detects it.
// Matching is case-insensitive; patterns are compiled once at init.
var KeySignalPatterns = map[Signal]*regexp.Regexp{
	SignalPONumber: regexp.MustCompile(`(?i)(p\.?o\.?\s*#|p\.?o\.?\s*(number|no\.?)|purchase\s+order\s*(number|no\.?|#)?)\s*:?\s*[A-Za-z0-9-]`),
	SignalInvoice:  regexp.MustCompile(`(?i)invoice\s*(number|no\.?|#)?\s*:?\s*[A-Za-z0-9-]`),
	SignalSupplier: regexp.MustCompile(`(?i)\b(supplier|vendor|sold\s+by|from)\s*:`),
	SignalTotals:   regexp.MustCompile(`(?i)\b(grand\s+total|total\s+(due|amount)|subtotal|balance\s+due|amount\s+due|total)\s*:?\s*[$£€]?\s*\d`),
	SignalTable:    regexp.MustCompile(`(?i)\b(qty|quantity)\b.{0,60}\b(unit\s+price|price|rate|amount)\b`),
}

// AllSignals lists signals in a stable order for deterministic reason codes.
var AllSignals = []Signal{SignalPONumber, SignalInvoice, SignalSupplier, SignalTotals, SignalTable}
