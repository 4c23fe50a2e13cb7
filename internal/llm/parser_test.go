package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poextract/poextract/internal/llm"
)

func TestParseFencedJSONWithTrailingComma(t *testing.T) {
	raw := "Here is the extraction:\n```json\n{\n" +
		`  "po_number": "PO-1001",` + "\n" +
		`  "supplier": "Acme Corp",` + "\n" +
		`  "total": "113.40",` + "\n" +
		`  "line_items": [` + "\n" +
		`    {"product_code": "W-1", "quantity": "10", "unit_price": "4.50", "total": "45.00"},` + "\n" +
		"  ],\n}\n```\n"

	p, err := llm.Parse(raw, nil)

	require.NoError(t, err)
	assert.Equal(t, "PO-1001", p.PONumber)
	assert.Equal(t, "Acme Corp", p.Supplier)
	assert.Equal(t, "113.40", p.Total)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, "W-1", *p.LineItems[0].ProductCode)
	assert.Equal(t, "45.00", *p.LineItems[0].Total)
}

func TestParseToleratesComments(t *testing.T) {
	raw := `{
  // extracted from the header
  "po_number": "PO-2", /* verified */
  "supplier": "Beta // not a comment",
  "line_items": []
}`

	p, err := llm.Parse(raw, nil)

	require.NoError(t, err)
	assert.Equal(t, "PO-2", p.PONumber)
	assert.Equal(t, "Beta // not a comment", p.Supplier)
}

func TestParseCoercesNumbersAndSynonyms(t *testing.T) {
	raw := `{
  "po_number": "PO-3",
  "subtotal": 105,
  "tax": 8.4,
  "total": "$1,250.00",
  "currency_code": " usd ",
  "items": [
    {"description": "Widget", "quantity": 10, "unit_price": 4.5, "total": 45}
  ]
}`

	p, err := llm.Parse(raw, nil)

	require.NoError(t, err)
	assert.Equal(t, "105", p.Subtotal)
	assert.Equal(t, "8.40", p.Tax)
	assert.Equal(t, "1250.00", p.Total)
	assert.Equal(t, "USD", p.CurrencyCode)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, "Widget", *p.LineItems[0].Description)
	assert.Equal(t, "10", *p.LineItems[0].Quantity)
	assert.Equal(t, "4.50", *p.LineItems[0].UnitPrice)
}

func TestParseDropsBadDatesAndUnknownKeys(t *testing.T) {
	raw := `{
  "po_number": "PO-4",
  "order_date": "2024-03-05",
  "delivery_date": "next Tuesday",
  "internal_score": 0.9,
  "line_items": [
    {"description": "Widget", "vendor_note": "rush"}
  ]
}`

	p, err := llm.Parse(raw, nil)

	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", p.OrderDate)
	assert.Empty(t, p.DeliveryDate)
	require.Len(t, p.LineItems, 1)
	assert.Equal(t, "Widget", *p.LineItems[0].Description)
}

func TestParseNotPurchaseOrderYieldsTypedEmpty(t *testing.T) {
	raw := "This document does not appear to be a purchase order. It looks like a resume."

	p, err := llm.Parse(raw, nil)

	require.NoError(t, err)
	assert.True(t, p.Empty())
	assert.Equal(t, []string{llm.NotPurchaseOrderIssue}, p.Issues)
	assert.Zero(t, p.Confidence)
	assert.NotNil(t, p.LineItems)
}

func TestParseNoJSONIsMalformed(t *testing.T) {
	_, err := llm.Parse("I could not process that document.", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
	assert.False(t, llm.Retryable(err))
}

func TestParseGarbledJSONIsMalformed(t *testing.T) {
	_, err := llm.Parse(`{"po_number": "PO-5", "line_items": [{{]}`, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, llm.ErrMalformedResponse)
}

func TestParseMissingLineItemsDefaultsEmpty(t *testing.T) {
	p, err := llm.Parse(`{"po_number": "PO-6"}`, nil)

	require.NoError(t, err)
	assert.NotNil(t, p.LineItems)
	assert.Empty(t, p.LineItems)
}
