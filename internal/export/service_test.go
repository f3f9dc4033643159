package export

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/receiptradar/constants"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

func cellFloat(t *testing.T, f *excelize.File, sheet, cell string) float64 {
	t.Helper()
	v, err := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	n, err := strconv.ParseFloat(v, 64)
	require.NoError(t, err, "cell %s!%s = %q", sheet, cell, v)
	return n
}

func TestExportReceipt(t *testing.T) {
	store := "COUNTDOWN"
	day := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	total := decimal.RequireFromString("13.90")
	dairy := constants.Dairy
	rec := entity.NewReceiptData()
	rec.StoreName, rec.Date, rec.Total = &store, &day, &total
	rec.Items = []entity.ReceiptItem{
		{Name: "MILK 2L", Price: decimal.RequireFromString("4.20"), Quantity: 2, Category: &dairy, Confidence: 0.8},
		{Name: "BANANAS", Price: decimal.RequireFromString("5.50"), Quantity: 1, Confidence: 0.55},
	}
	report := entity.ValidationReport{IsValid: true, ConfidenceScore: 0.7, Warnings: []string{"1 items have low confidence scores"}}

	path := filepath.Join(t.TempDir(), "receipt.xlsx")
	require.NoError(t, NewService(nil).ExportReceipt(rec, report, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetReceipt, SheetItems}, f.GetSheetList())

	v, err := f.GetCellValue(SheetReceipt, "B1")
	require.NoError(t, err)
	assert.Equal(t, "COUNTDOWN", v)
	v, err = f.GetCellValue(SheetReceipt, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-15", v)
	assert.InDelta(t, 13.90, cellFloat(t, f, SheetReceipt, "B6"), 1e-9)
	assert.InDelta(t, 13.90, cellFloat(t, f, SheetReceipt, "B7"), 1e-9)
	v, err = f.GetCellValue(SheetReceipt, "B11")
	require.NoError(t, err)
	assert.Equal(t, "1 items have low confidence scores", v)

	rows, err := f.GetRows(SheetItems)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Name", "Quantity", "Price", "Line Total", "Category", "Confidence"}, rows[0])
	assert.Equal(t, "MILK 2L", rows[1][0])
	assert.Equal(t, "Dairy", rows[1][4])
	assert.InDelta(t, 8.40, cellFloat(t, f, SheetItems, "D2"), 1e-9)
	assert.Equal(t, "", rows[2][4])
}

func TestExportBasket(t *testing.T) {
	rec := "FreshMart"
	analysis := entity.BasketAnalysis{
		TotalSavings: decimal.RequireFromString("0.80"),
		SavingsOpportunities: []entity.SavingsOpportunity{{
			ItemName:           "milk",
			CurrentPrice:       decimal.RequireFromString("5.00"),
			BestPrice:          decimal.RequireFromString("4.20"),
			Savings:            decimal.RequireFromString("0.80"),
			StoreName:          "FreshMart",
			Confidence:         0.8,
			PriceHistoryPoints: 3,
		}},
		StoreRecommendation: &rec,
		CashbackAvailable:   decimal.RequireFromString("0.50"),
	}

	path := filepath.Join(t.TempDir(), "basket.xlsx")
	require.NoError(t, NewService(nil).ExportBasket(analysis, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetSavings)
	require.NoError(t, err)
	require.Len(t, rows, 4, "header, one opportunity, blank, summary")
	assert.Equal(t, "milk", rows[1][0])
	assert.Equal(t, "Total Savings", rows[3][0])
	assert.Equal(t, "FreshMart", rows[3][4])
	assert.InDelta(t, 0.80, cellFloat(t, f, SheetSavings, "D4"), 1e-9)
	assert.InDelta(t, 0.50, cellFloat(t, f, SheetSavings, "G4"), 1e-9)
}

func TestExportBasket_Empty(t *testing.T) {
	f, err := BasketWorkbook(entity.EmptyBasketAnalysis())
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(SheetSavings)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Total Savings", rows[2][0])
}
