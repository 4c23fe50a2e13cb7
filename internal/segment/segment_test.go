package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poextract/poextract/internal/segment"
)

const sampleDoc = `PO# 12345
Supplier: Acme Corp
Order Date: 2024-03-05

Item    Qty    Unit Price    Amount
WIDGET-1    10    4.50    45.00
GADGET-2    5    12.00    60.00

Notes: deliver to dock 4.

Subtotal: 105.00
Tax: 8.40
TOTAL: 113.40
`

func TestSegmentHeuristicsSplitsSections(t *testing.T) {
	seg := segment.Segment(sampleDoc, nil, segment.Config{HeaderLines: 3})

	assert.Contains(t, seg.Header, "PO# 12345")
	assert.Contains(t, seg.Header, "Supplier: Acme Corp")
	assert.NotContains(t, seg.Header, "WIDGET-1")

	require.Len(t, seg.LineItemBlocks, 1)
	assert.Contains(t, seg.LineItemBlocks[0], "Qty")
	assert.Contains(t, seg.LineItemBlocks[0], "WIDGET-1")
	assert.Contains(t, seg.LineItemBlocks[0], "GADGET-2")
	assert.NotContains(t, seg.LineItemBlocks[0], "Notes:")

	assert.Contains(t, seg.Totals, "Subtotal: 105.00")
	assert.Contains(t, seg.Totals, "TOTAL: 113.40")
}

func TestSegmentTotalsKeptInDocumentOrder(t *testing.T) {
	seg := segment.Segment(sampleDoc, nil, segment.Config{TotalsLines: 2})

	// collected bottom-up, emitted top-down
	assert.Equal(t, "Subtotal: 105.00\nTOTAL: 113.40", seg.Totals)
}

func TestSegmentShortDocument(t *testing.T) {
	seg := segment.Segment("PO# 1\nTotal: 5", nil, segment.Config{})

	assert.Equal(t, "PO# 1\nTotal: 5", seg.Header)
	assert.Equal(t, "Total: 5", seg.Totals)
	assert.Empty(t, seg.LineItemBlocks)
}

func TestSegmentFromAnchorsRoutesByID(t *testing.T) {
	anchors := &segment.AnchorResult{
		Applied: true,
		Snippets: []segment.AnchorSnippet{
			{AnchorID: "po_number", Snippet: "PO# 777"},
			{AnchorID: "supplier", Snippet: "Supplier: Beta LLC"},
			{AnchorID: "line_items", Snippet: "Qty Price rows"},
			{AnchorID: "grand_total", Snippet: "TOTAL: 42.00"},
		},
	}

	seg := segment.Segment("ignored fallback", anchors, segment.Config{})

	assert.Equal(t, "PO# 777\nSupplier: Beta LLC", seg.Header)
	assert.Equal(t, []string{"Qty Price rows"}, seg.LineItemBlocks)
	assert.Equal(t, "TOTAL: 42.00", seg.Totals)
}

func TestSegmentEmptyAnchorsFallsBack(t *testing.T) {
	seg := segment.Segment(sampleDoc, &segment.AnchorResult{Applied: true}, segment.Config{HeaderLines: 2})

	assert.Contains(t, seg.Header, "PO# 12345")
}

func TestSegmentLineItemBlockCap(t *testing.T) {
	doc := ""
	for i := 0; i < 6; i++ {
		doc += "Qty  Unit Price\nrow data 1\n\n"
	}

	seg := segment.Segment(doc, nil, segment.Config{MaxLineItemBlocks: 2})

	assert.Len(t, seg.LineItemBlocks, 2)
}
