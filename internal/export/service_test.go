package export_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/poextract/poextract/internal/entity"
	"github.com/poextract/poextract/internal/export"
)

func strptr(s string) *string { return &s }

func TestExtractionXLSXRoundTrip(t *testing.T) {
	res := entity.MergedExtraction{
		ExtractionPayload: entity.ExtractionPayload{
			PONumber: "PO-1001",
			Supplier: "Acme Corp",
			Total:    "113.40",
			LineItems: []entity.LineItem{
				{ProductCode: strptr("W-1"), Description: strptr("Widget"), Quantity: strptr("10"), UnitPrice: strptr("4.50"), Total: strptr("45.00")},
				{Description: strptr("Shipping insurance")},
			},
			Issues: []string{"chunk 2 failed: timeout"},
		},
		Score: entity.ConfidenceProfile{Overall: 83, Normalized: 0.83},
	}

	data, err := export.NewService(nil).ExtractionXLSX(res)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Order", "Line Items"}, f.GetSheetList())

	v, err := f.GetCellValue("Order", "B1")
	require.NoError(t, err)
	assert.Equal(t, "PO-1001", v)

	v, _ = f.GetCellValue("Order", "B10")
	assert.Equal(t, "113.40", v)

	v, _ = f.GetCellValue("Order", "B11")
	assert.Equal(t, "83%", v)

	v, _ = f.GetCellValue("Order", "A13")
	assert.Equal(t, "Issue: chunk 2 failed: timeout", v)

	v, _ = f.GetCellValue("Line Items", "A1")
	assert.Equal(t, "Product Code", v)
	v, _ = f.GetCellValue("Line Items", "A2")
	assert.Equal(t, "W-1", v)
	v, _ = f.GetCellValue("Line Items", "E2")
	assert.Equal(t, "45.00", v)
	v, _ = f.GetCellValue("Line Items", "B3")
	assert.Equal(t, "Shipping insurance", v)
	v, _ = f.GetCellValue("Line Items", "A3")
	assert.Empty(t, v)
}

func TestExtractionXLSXEmptyResult(t *testing.T) {
	data, err := export.NewService(nil).ExtractionXLSX(entity.MergedExtraction{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
