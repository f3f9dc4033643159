// Package export writes receipts and basket analyses to XLSX workbooks.
package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

const (
	SheetReceipt = "Receipt"
	SheetItems   = "Items"
	SheetSavings = "Savings"
)

// Service produces XLSX files for parsed receipts and savings reports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportReceipt writes a Receipt sheet with header fields and the validation
// outcome, and an Items sheet with one row per item.
func (s *Service) ExportReceipt(receipt entity.ReceiptData, report entity.ValidationReport, path string) error {
	start := time.Now()
	f, err := ReceiptWorkbook(receipt, report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		s.logger.Error("export.xlsx.write_error", "path", path, "error", err)
		return fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"kind", "receipt",
		"path", path,
		"rows", len(receipt.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ExportBasket writes a Savings sheet with one row per opportunity plus a summary row.
func (s *Service) ExportBasket(analysis entity.BasketAnalysis, path string) error {
	start := time.Now()
	f, err := BasketWorkbook(analysis)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		s.logger.Error("export.xlsx.write_error", "path", path, "error", err)
		return fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"kind", "basket",
		"path", path,
		"rows", len(analysis.SavingsOpportunities),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// ReceiptWorkbook builds the receipt workbook in memory.
func ReceiptWorkbook(receipt entity.ReceiptData, report entity.ValidationReport) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetReceipt); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return nil, err
	}

	header := [][2]any{
		{"Store", deref(receipt.StoreName)},
		{"Date", dateCell(receipt.Date)},
		{"Receipt Number", deref(receipt.ReceiptNumber)},
		{"Subtotal", money(receipt.Subtotal)},
		{"Tax", money(receipt.Tax)},
		{"Total", money(receipt.Total)},
		{"Items Total", amount(receipt.ItemsTotal())},
		{"Valid", report.IsValid},
		{"Confidence", report.ConfidenceScore},
		{"Issues", join(report.Issues)},
		{"Warnings", join(report.Warnings)},
	}
	for i, kv := range header {
		if err := setRow(f, SheetReceipt, i+1, kv[0], kv[1]); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(SheetReceipt, "A", "A", 18)
	_ = f.SetColWidth(SheetReceipt, "B", "B", 48)

	if err := setRow(f, SheetItems, 1, "Name", "Quantity", "Price", "Line Total", "Category", "Confidence"); err != nil {
		return nil, err
	}
	for i, it := range receipt.Items {
		category := ""
		if it.Category != nil {
			category = string(*it.Category)
		}
		if err := setRow(f, SheetItems, i+2,
			it.Name, it.Quantity, amount(it.Price), amount(it.LineTotal()), category, it.Confidence,
		); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(SheetItems, "A", "A", 32)
	_ = f.SetColWidth(SheetItems, "E", "E", 16)
	return f, nil
}

// BasketWorkbook builds the savings workbook in memory.
func BasketWorkbook(analysis entity.BasketAnalysis) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSavings); err != nil {
		return nil, err
	}
	if err := setRow(f, SheetSavings, 1,
		"Item", "Current Price", "Best Price", "Savings", "Store", "Confidence", "History Points",
	); err != nil {
		return nil, err
	}
	row := 2
	for _, o := range analysis.SavingsOpportunities {
		if err := setRow(f, SheetSavings, row,
			o.ItemName, amount(o.CurrentPrice), amount(o.BestPrice), amount(o.Savings),
			o.StoreName, o.Confidence, o.PriceHistoryPoints,
		); err != nil {
			return nil, err
		}
		row++
	}

	recommendation := ""
	if analysis.StoreRecommendation != nil {
		recommendation = *analysis.StoreRecommendation
	}
	row++
	if err := setRow(f, SheetSavings, row,
		"Total Savings", "", "", amount(analysis.TotalSavings), recommendation, "Cashback", amount(analysis.CashbackAvailable),
	); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(SheetSavings, "A", "A", 32)
	_ = f.SetColWidth(SheetSavings, "E", "E", 24)
	return f, nil
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func amount(d decimal.Decimal) float64 {
	v, _ := d.Round(2).Float64()
	return v
}

func money(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return amount(*d)
}

func dateCell(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func join(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}
