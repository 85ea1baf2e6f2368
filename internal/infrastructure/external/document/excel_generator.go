// Package document renders customer-facing quotation documents as xlsx workbooks
package document

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/garyjia/service-workflow/internal/application/port"
	"github.com/garyjia/service-workflow/internal/domain/entity"
	"github.com/garyjia/service-workflow/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const itemHeaderRow = 11

var itemHeaders = []string{"Sr No", "Part Name", "Part Code", "HSN Code", "Qty", "Rate", "GST %", "Amount"}

// ExcelGenerator implements port.DocumentGenerator
type ExcelGenerator struct {
	store       port.DocumentStore
	baseURL     string
	companyName string
	logger      *zap.Logger
}

// NewExcelGenerator creates a generator that stores workbooks in store and
// serves them under baseURL
func NewExcelGenerator(store port.DocumentStore, baseURL, companyName string, logger *zap.Logger) *ExcelGenerator {
	return &ExcelGenerator{
		store:       store,
		baseURL:     strings.TrimRight(baseURL, "/"),
		companyName: companyName,
		logger:      logger,
	}
}

// Generate renders q and stores it at <center code>/<document type>/<number>.xlsx
func (g *ExcelGenerator) Generate(ctx context.Context, q *entity.Quotation, sc *entity.ServiceCenter) (*port.Document, error) {
	if q == nil {
		return nil, fmt.Errorf("no quotation to render")
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := q.DocumentType.String()
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	g.fillHeader(f, sheet, q, sc)
	next := g.fillItems(f, sheet, q.Items)
	g.fillTotals(f, sheet, q, next+1)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	folder := q.ServiceCenterID
	if sc != nil && sc.Code != "" {
		folder = sc.Code
	}
	fileName := storage.SanitizeName(q.QuotationNumber) + ".xlsx"
	relPath := path.Join(storage.SanitizeName(folder), storage.SanitizeName(strings.ToLower(sheet)), fileName)

	if err := g.store.Put(ctx, relPath, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	g.logger.Info("Document generated",
		zap.String("quotation_number", q.QuotationNumber),
		zap.String("document_type", sheet),
		zap.String("path", relPath))

	return &port.Document{
		FileName: fileName,
		Path:     relPath,
		URL:      g.baseURL + "/" + relPath,
	}, nil
}

func (g *ExcelGenerator) fillHeader(f *excelize.File, sheet string, q *entity.Quotation, sc *entity.ServiceCenter) {
	g.setCell(f, sheet, "A1", g.companyName)
	if sc != nil {
		g.setCell(f, sheet, "A2", fmt.Sprintf("%s (%s)", sc.Name, sc.Code))
	}

	rows := [][2]string{
		{q.DocumentType.String(), q.QuotationNumber},
		{"Date", q.CreatedAt.Format("02-01-2006")},
		{"Customer", q.CustomerName},
		{"Phone", q.CustomerPhone},
		{"Vehicle", q.VehicleID},
		{"Job Card", q.JobCardID},
	}
	for i, r := range rows {
		row := i + 4
		g.setCell(f, sheet, fmt.Sprintf("A%d", row), r[0])
		g.setCell(f, sheet, fmt.Sprintf("B%d", row), r[1])
	}
}

// fillItems writes the line items and returns the first free row
func (g *ExcelGenerator) fillItems(f *excelize.File, sheet string, items []entity.QuotationItem) int {
	for i, h := range itemHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, itemHeaderRow)
		g.setCell(f, sheet, cell, h)
	}

	row := itemHeaderRow + 1
	for _, item := range items {
		values := []interface{}{
			item.SrNo,
			item.PartName,
			item.PartCode,
			item.HSNCode,
			item.Quantity,
			money(item.Rate),
			item.GSTPercent.String(),
			money(item.Amount),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			g.setCell(f, sheet, cell, v)
		}
		row++
	}
	return row
}

func (g *ExcelGenerator) fillTotals(f *excelize.File, sheet string, q *entity.Quotation, row int) {
	t := q.Totals
	lines := [][2]interface{}{
		{"Subtotal", money(t.Subtotal)},
		{"Discount", money(t.Discount)},
		{"Pre-GST Amount", money(t.PreGSTAmount)},
	}
	if q.InterState {
		lines = append(lines, [2]interface{}{"IGST", money(t.IGST)})
	} else {
		lines = append(lines,
			[2]interface{}{"CGST", money(t.CGST)},
			[2]interface{}{"SGST", money(t.SGST)})
	}
	lines = append(lines, [2]interface{}{"Total", money(t.Total)})

	for i, l := range lines {
		g.setCell(f, sheet, fmt.Sprintf("G%d", row+i), l[0])
		g.setCell(f, sheet, fmt.Sprintf("H%d", row+i), l[1])
	}

	if q.Notes != "" {
		g.setCell(f, sheet, fmt.Sprintf("A%d", row+len(lines)+1), "Notes")
		g.setCell(f, sheet, fmt.Sprintf("B%d", row+len(lines)+1), q.Notes)
	}
}

func (g *ExcelGenerator) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		g.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

var _ port.DocumentGenerator = (*ExcelGenerator)(nil)
