package normalize

import "regexp"

// Artifact patterns are applied in order. Each removes a class of OCR/ERP
// boilerplate that carries no extraction signal.
var artifactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^\s*page\s+\d+\s*(of\s+\d+)?\s*$`),
	regexp.MustCompile(`(?im)^\s*-+\s*page\s+break\s*-+\s*$`),
	regexp.MustCompile(`(?im)^\s*\*{3,}.*\*{3,}\s*$`),
	regexp.MustCompile(`(?im)^\s*[|¦]{4,}\s*$`),                       // barcode bands
	regexp.MustCompile(`(?im)^\s*\[?barcode[:\]].*$`),
	regexp.MustCompile(`(?im)^\s*(this\s+document\s+was\s+)?generated\s+by\s+\S.*$`),
	regexp.MustCompile(`(?im)^\s*printed\s+(on|at)\s+.*$`),
	regexp.MustCompile(`(?im)^\s*scanned\s+(with|by)\s+.*$`),
	regexp.MustCompile(`(?m)^\s*[_\-=]{4,}\s*$`),                      // rule lines
}

// Vendor-specific noise, selected by the options' vendor key. Extend as new
// ERP exports show up in the field.
var vendorPatterns = map[string][]*regexp.Regexp{
	"sap": {
		regexp.MustCompile(`(?im)^\s*sap\s+crystal\s+reports.*$`),
		regexp.MustCompile(`(?im)^\s*client\s*:\s*\d{3}\s*$`),
	},
	"netsuite": {
		regexp.MustCompile(`(?im)^\s*netsuite\s+inc\..*$`),
		regexp.MustCompile(`(?im)^\s*https://\S*netsuite\S*$`),
	},
	"quickbooks": {
		regexp.MustCompile(`(?im)^\s*intuit\s+quickbooks.*$`),
	},
}

// Label:value compressions. Rewrites keep the machine-parseable value while
// shedding prose tokens.
var (
	rePOLabel = regexp.MustCompile(`(?i)\b(?:purchase\s+order\s+(?:number|no\.?)|p\.?o\.?\s+(?:number|no\.?))\s*[:#]?\s*([A-Za-z0-9][A-Za-z0-9-]*)`)
	rePOHash  = regexp.MustCompile(`(?i)\bpo\s*#\s*([A-Za-z0-9][A-Za-z0-9-]*)`)

	reTotalLabel = regexp.MustCompile(`(?i)\b(?:grand\s+total|total\s+amount\s+due|total\s+amount|amount\s+due)\s*:`)

	reProseDate = regexp.MustCompile(`\b(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	reDMYDate   = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?\s+(January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.?,?\s+(\d{4})\b`)
)

var monthNumbers = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// Whitespace handling (conservative: keeps line breaks).
var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
)

// Table layout compression.
var reColumnGap = regexp.MustCompile(` {3,}`)
