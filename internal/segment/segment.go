package segment

import (
	"regexp"
	"strings"
)

// Segments are the three logical sections of a purchase order, used to build
// multi-part prompts. Fields may be empty when nothing matched; callers fall
// back to raw text windows.
type Segments struct {
	Header         string   `json:"header"`
	LineItemBlocks []string `json:"line_item_blocks"`
	Totals         string   `json:"totals"`
}

// Config bounds the heuristic fallback so prompts stay small.
type Config struct {
	HeaderLines       int // first N lines treated as header
	TotalsLines       int // last N totals-looking lines kept
	MaxLineItemBlocks int
	MaxBlockLines     int
}

func DefaultConfig() Config {
	return Config{
		HeaderLines:       12,
		TotalsLines:       3,
		MaxLineItemBlocks: 4,
		MaxBlockLines:     60,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HeaderLines <= 0 {
		c.HeaderLines = d.HeaderLines
	}
	if c.TotalsLines <= 0 {
		c.TotalsLines = d.TotalsLines
	}
	if c.MaxLineItemBlocks <= 0 {
		c.MaxLineItemBlocks = d.MaxLineItemBlocks
	}
	if c.MaxBlockLines <= 0 {
		c.MaxBlockLines = d.MaxBlockLines
	}
	return c
}

var (
	reTotalsLine  = regexp.MustCompile(`(?i)\b(total|subtotal|balance|amount\s+due)\b`)
	reTableHeader = regexp.MustCompile(`(?i)\b(qty|quantity)\b.{0,60}\b(unit\s+price|price|rate|amount)\b`)

	reHeaderAnchor = regexp.MustCompile(`(?i)po|purchase|order|supplier|vendor|date|invoice|header`)
	reTotalsAnchor = regexp.MustCompile(`(?i)total|subtotal|balance|amount`)
	reItemsAnchor  = regexp.MustCompile(`(?i)line|item|table|qty|product`)
)

// Segment routes anchor snippets into sections when available, otherwise
// falls back to line heuristics over fallbackSource.
func Segment(fallbackSource string, anchors *AnchorResult, cfg Config) Segments {
	cfg = cfg.withDefaults()
	if anchors != nil && anchors.Applied && len(anchors.Snippets) > 0 {
		return fromAnchors(anchors, cfg)
	}
	return fromHeuristics(fallbackSource, cfg)
}

func fromAnchors(anchors *AnchorResult, cfg Config) Segments {
	var seg Segments
	var header, totals []string
	for _, sn := range anchors.Snippets {
		id := strings.ToLower(sn.AnchorID)
		switch {
		case reTotalsAnchor.MatchString(id):
			totals = append(totals, sn.Snippet)
		case reItemsAnchor.MatchString(id):
			if len(seg.LineItemBlocks) < cfg.MaxLineItemBlocks {
				seg.LineItemBlocks = append(seg.LineItemBlocks, sn.Snippet)
			}
		case reHeaderAnchor.MatchString(id):
			header = append(header, sn.Snippet)
		default:
			header = append(header, sn.Snippet)
		}
	}
	seg.Header = strings.Join(header, "\n")
	seg.Totals = strings.Join(totals, "\n")
	return seg
}

func fromHeuristics(text string, cfg Config) Segments {
	lines := strings.Split(text, "\n")
	var seg Segments

	n := cfg.HeaderLines
	if n > len(lines) {
		n = len(lines)
	}
	seg.Header = strings.TrimSpace(strings.Join(lines[:n], "\n"))

	// totals: the last few matching lines, kept in document order
	var totals []string
	for i := len(lines) - 1; i >= 0 && len(totals) < cfg.TotalsLines; i-- {
		if reTotalsLine.MatchString(lines[i]) {
			totals = append([]string{strings.TrimSpace(lines[i])}, totals...)
		}
	}
	seg.Totals = strings.Join(totals, "\n")

	// line items: contiguous blocks starting at table-header lines
	i := 0
	for i < len(lines) && len(seg.LineItemBlocks) < cfg.MaxLineItemBlocks {
		if !reTableHeader.MatchString(lines[i]) {
			i++
			continue
		}
		end := i + 1
		for end < len(lines) && end-i < cfg.MaxBlockLines && strings.TrimSpace(lines[end]) != "" {
			end++
		}
		seg.LineItemBlocks = append(seg.LineItemBlocks, strings.Join(lines[i:end], "\n"))
		i = end
	}
	return seg
}
