package merge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poextract/poextract/internal/entity"
	"github.com/poextract/poextract/internal/merge"
)

func item(code, desc, qty string) entity.LineItem {
	return entity.LineItem{ProductCode: &code, Description: &desc, Quantity: &qty}
}

func TestLineItemsDedupAcrossOverlap(t *testing.T) {
	a, b, c, d := item("A", "alpha", "1"), item("B", "beta", "2"), item("C", "gamma", "3"), item("D", "delta", "4")
	chunks := []entity.ExtractionPayload{
		{LineItems: []entity.LineItem{a, b, c}},
		{LineItems: []entity.LineItem{b, c, d}},
	}

	got := merge.LineItems(chunks)

	require.Len(t, got, 4)
	assert.Equal(t, "A", *got[0].ProductCode)
	assert.Equal(t, "B", *got[1].ProductCode)
	assert.Equal(t, "C", *got[2].ProductCode)
	assert.Equal(t, "D", *got[3].ProductCode)
}

func TestLineItemsIdempotent(t *testing.T) {
	chunks := []entity.ExtractionPayload{
		{LineItems: []entity.LineItem{item("A", "alpha", "1"), item("B", "beta", "2")}},
	}

	once := merge.LineItems(chunks)
	twice := merge.LineItems([]entity.ExtractionPayload{{LineItems: once}, {LineItems: once}})

	assert.Equal(t, once, twice)
}

func TestLineItemsDifferingFieldIsNotADuplicate(t *testing.T) {
	chunks := []entity.ExtractionPayload{
		{LineItems: []entity.LineItem{item("A", "alpha", "1")}},
		{LineItems: []entity.LineItem{item("A", "alpha", "2")}},
	}

	assert.Len(t, merge.LineItems(chunks), 2)
}

func TestLineItemsNilFieldEqualsEmptyString(t *testing.T) {
	empty := ""
	withNil := entity.LineItem{Description: strptr("alpha")}
	withEmpty := entity.LineItem{ProductCode: &empty, Description: strptr("alpha")}
	chunks := []entity.ExtractionPayload{
		{LineItems: []entity.LineItem{withNil}},
		{LineItems: []entity.LineItem{withEmpty}},
	}

	assert.Len(t, merge.LineItems(chunks), 1)
}

func strptr(s string) *string { return &s }

func TestPayloadsChunkOneWinsHeaderFields(t *testing.T) {
	chunks := []entity.ExtractionPayload{
		{PONumber: "PO-1", Supplier: "Acme", Confidence: 0.9},
		{PONumber: "PO-9", Supplier: "Other", Total: "113.40", Confidence: 0.4},
	}

	got := merge.Payloads(chunks)

	assert.Equal(t, "PO-1", got.PONumber)
	assert.Equal(t, "Acme", got.Supplier)
	assert.Equal(t, "113.40", got.Total, "later chunks fill fields chunk 1 left empty")
	assert.Equal(t, 0.9, got.Confidence)
}

func TestPayloadsConfidenceFallsBackWhenChunkOneUnreported(t *testing.T) {
	chunks := []entity.ExtractionPayload{
		{},
		{Confidence: 0.7},
	}

	assert.Equal(t, 0.7, merge.Payloads(chunks).Confidence)
}

func TestPayloadsIssuesConcatenateInChunkOrder(t *testing.T) {
	chunks := []entity.ExtractionPayload{
		{Issues: []string{"first"}},
		{Issues: []string{"second", "third"}},
	}

	assert.Equal(t, []string{"first", "second", "third"}, merge.Payloads(chunks).Issues)
}

func TestPayloadsSumsUsage(t *testing.T) {
	chunks := []entity.ExtractionPayload{
		{Usage: entity.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}},
		{Usage: entity.TokenUsage{PromptTokens: 50, CompletionTokens: 10, TotalTokens: 60}},
	}

	got := merge.Payloads(chunks)

	assert.Equal(t, 150, got.Usage.PromptTokens)
	assert.Equal(t, 30, got.Usage.CompletionTokens)
	assert.Equal(t, 180, got.Usage.TotalTokens)
}

func TestPayloadsEmptyInput(t *testing.T) {
	got := merge.Payloads(nil)

	assert.NotNil(t, got.LineItems)
	assert.Empty(t, got.LineItems)
	assert.True(t, got.Empty())
}
