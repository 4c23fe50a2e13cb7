package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/poextract/poextract/internal/entity"
)

// Service renders a MergedExtraction as an XLSX workbook: one header sheet,
// one line-item sheet.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExtractionXLSX returns workbook bytes for one extraction result.
func (s *Service) ExtractionXLSX(res entity.MergedExtraction) ([]byte, error) {
	start := time.Now()
	f := excelize.NewFile()

	const headerSheet = "Order"
	const itemSheet = "Line Items"

	// excelize starts with "Sheet1": rename it rather than leaving it behind
	if err := f.SetSheetName("Sheet1", headerSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemSheet); err != nil {
		return nil, err
	}

	headerRows := [][2]string{
		{"PO Number", res.PONumber},
		{"Supplier", res.Supplier},
		{"Supplier Contact", res.SupplierContact},
		{"Order Date", res.OrderDate},
		{"Delivery Date", res.DeliveryDate},
		{"Currency", res.CurrencyCode},
		{"Subtotal", res.Subtotal},
		{"Tax", res.Tax},
		{"Shipping", res.Shipping},
		{"Total", res.Total},
		{"Confidence", fmt.Sprintf("%d%%", res.Score.Overall)},
	}
	for i, kv := range headerRows {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(headerSheet, keyCell, kv[0])
		_ = f.SetCellValue(headerSheet, valCell, kv[1])
	}
	for i, issue := range res.Issues {
		keyCell, _ := excelize.CoordinatesToCellName(1, len(headerRows)+2+i)
		_ = f.SetCellValue(headerSheet, keyCell, "Issue: "+issue)
	}

	itemHeaders := []string{"Product Code", "Description", "Quantity", "Unit Price", "Total"}
	for i, h := range itemHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemSheet, cell, h)
	}
	for r, li := range res.LineItems {
		values := []*string{li.ProductCode, li.Description, li.Quantity, li.UnitPrice, li.Total}
		for c, v := range values {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			_ = f.SetCellValue(itemSheet, cell, *v)
		}
	}

	_ = f.SetColWidth(headerSheet, "A", "A", 18)
	_ = f.SetColWidth(headerSheet, "B", "B", 40)
	_ = f.SetColWidth(itemSheet, "A", "A", 16)
	_ = f.SetColWidth(itemSheet, "B", "B", 48)
	_ = f.SetColWidth(itemSheet, "C", "E", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"line_items", len(res.LineItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
