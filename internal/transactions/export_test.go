package transactions

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
	"github.com/repairdesk/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/repairdesk/repairdesk-backend/pkg/errors"
)

func exportFixtureRows() []models.Transaction {
	return []models.Transaction{
		{
			ID:           uuid.New(),
			Type:         enums.TransactionTypeSale,
			CustomerName: "Karim",
			Total:        decimal.RequireFromString("900"),
			Advance:      decimal.RequireFromString("400"),
			Amount:       decimal.RequireFromString("900"),
			Cost:         decimal.RequireFromString("450"),
			Profit:       decimal.RequireFromString("450"),
			Due:          decimal.RequireFromString("500"),
			Note:         "screen, with \"glass\"",
			CreatedAt:    testNow,
		},
	}
}

func TestParseExportFormat(t *testing.T) {
	for raw, want := range map[string]ExportFormat{"": ExportCSV, "CSV": ExportCSV, "xlsx": ExportXLSX, "excel": ExportXLSX} {
		got, err := ParseExportFormat(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	_, err := ParseExportFormat("pdf")
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	rows := exportFixtureRows()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])
	assert.Equal(t, rows[0].ID.String(), records[1][0])
	assert.Equal(t, "sale", records[1][2])
	assert.Equal(t, "500.00", records[1][10])
	assert.Equal(t, rows[0].Note, records[1][11])
}

func TestBuildXLSX(t *testing.T) {
	rows := exportFixtureRows()
	data, err := BuildXLSX(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{exportSheet}, f.GetSheetList())
	header, err := f.GetCellValue(exportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)
	customer, err := f.GetCellValue(exportSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Karim", customer)
	due, err := f.GetCellValue(exportSheet, "K2")
	require.NoError(t, err)
	assert.Equal(t, "500", due)
}

func TestExportReturnsRangeOldestFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := uuid.New()

	for i := 0; i < 3; i++ {
		*f.clock = testNow.Add(time.Duration(i) * 24 * time.Hour)
		_, err := f.svc.Create(ctx, owner, CreateInput{Type: enums.TransactionTypeExpense, Amount: decimal.NewFromInt(int64(100 * (i + 1)))})
		require.NoError(t, err)
	}

	rows, err := f.svc.Export(ctx, owner, testNow, testNow.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, rows[1].Amount.Equal(decimal.NewFromInt(200)))

	other, err := f.svc.Export(ctx, uuid.New(), testNow, testNow.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = f.svc.Export(ctx, owner, testNow, testNow)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
