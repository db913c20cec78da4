package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

const (
	DocumentsSheet = "Documents"
	ItemsSheet     = "Items"
)

var (
	documentHeaders = []string{
		"Date",
		"Invoice No",
		"Supplier",
		"Buyer",
		"Subtotal",
		"Tax",
		"VAT",
		"Total",
		"Currency",
		"Source",
	}
	itemHeaders = []string{
		"Invoice No",
		"Sl No",
		"Name",
		"Quantity",
		"Unit Price",
		"Amount",
	}
)

// Service produces XLSX workbooks from stored documents.
type Service struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ExportDocumentsXLSX returns a workbook (as bytes) with one row per document
// matching f on the Documents sheet and one row per line item on the Items sheet.
func (s *Service) ExportDocumentsXLSX(ctx context.Context, f repository.ListFilter) ([]byte, error) {
	start := time.Now()

	docs, err := s.docs.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	// NewFile starts with "Sheet1"; rename it rather than leave an empty tab.
	if err := wb.SetSheetName(wb.GetSheetName(0), DocumentsSheet); err != nil {
		return nil, err
	}
	if _, err := wb.NewSheet(ItemsSheet); err != nil {
		return nil, err
	}
	if err := writeHeaders(wb, DocumentsSheet, documentHeaders); err != nil {
		return nil, err
	}
	if err := writeHeaders(wb, ItemsSheet, itemHeaders); err != nil {
		return nil, err
	}

	docRow, itemRow := 2, 2
	items := 0
	for _, d := range docs {
		fd := d.Fields
		if err := writeRow(wb, DocumentsSheet, docRow, []any{
			fd.Date,
			fd.InvoiceNumber,
			fd.SupplierName,
			fd.BuyerName,
			fd.Subtotal,
			fd.TaxAmount,
			fd.VATAmount,
			fd.TotalAmount,
			fd.Currency,
			d.SourcePath,
		}); err != nil {
			return nil, err
		}
		docRow++

		for _, it := range fd.Items {
			if err := writeRow(wb, ItemsSheet, itemRow, []any{
				fd.InvoiceNumber,
				it.SlNo,
				it.Name,
				it.Quantity,
				it.UnitPrice,
				it.Amount,
			}); err != nil {
				return nil, err
			}
			itemRow++
			items++
		}
	}

	_ = wb.SetColWidth(DocumentsSheet, "A", "B", 16) // date, number
	_ = wb.SetColWidth(DocumentsSheet, "C", "D", 36) // parties
	_ = wb.SetColWidth(DocumentsSheet, "E", "H", 14) // amounts
	_ = wb.SetColWidth(DocumentsSheet, "J", "J", 60) // path
	_ = wb.SetColWidth(ItemsSheet, "C", "C", 40)
	wb.SetActiveSheet(0)

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"documents", len(docs),
		"items", items,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeHeaders(wb *excelize.File, sheet string, headers []string) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return writeRow(wb, sheet, 1, row)
}

func writeRow(wb *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return wb.SetSheetRow(sheet, cell, &values)
}
