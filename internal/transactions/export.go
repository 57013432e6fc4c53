package transactions

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/repairdesk/repairdesk-backend/pkg/db/models"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"

	exportSheet = "Transactions"
	exportDate  = "2006-01-02 15:04"
)

var exportHeader = []string{"ID", "Date", "Type", "Customer", "Phone", "Total", "Advance", "Amount", "Cost", "Profit", "Due", "Note"}

// ParseExportFormat accepts csv (the default) and xlsx, with "excel" as an
// alias for the latter.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return ExportCSV, nil
	case "xlsx", "excel":
		return ExportXLSX, nil
	}
	return "", fmt.Errorf("invalid export format %q (use csv or xlsx)", raw)
}

func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func exportRow(t models.Transaction) []string {
	return []string{
		t.ID.String(),
		t.CreatedAt.UTC().Format(exportDate),
		string(t.Type),
		t.CustomerName,
		t.CustomerPhone,
		t.Total.StringFixed(2),
		t.Advance.StringFixed(2),
		t.Amount.StringFixed(2),
		t.Cost.StringFixed(2),
		t.Profit.StringFixed(2),
		t.Due.StringFixed(2),
		t.Note,
	}
}

// WriteCSV streams rows as CSV with a header line.
func WriteCSV(w io.Writer, rows []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, t := range rows {
		if err := cw.Write(exportRow(t)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildXLSX renders rows into a single-sheet workbook. Money columns are
// written as numbers so spreadsheet sums work.
func BuildXLSX(rows []models.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	for c, v := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheet, cell, v); err != nil {
			return nil, err
		}
	}
	for r, t := range rows {
		values := []any{
			t.ID.String(),
			t.CreatedAt.UTC().Format(exportDate),
			string(t.Type),
			t.CustomerName,
			t.CustomerPhone,
			t.Total.InexactFloat64(),
			t.Advance.InexactFloat64(),
			t.Amount.InexactFloat64(),
			t.Cost.InexactFloat64(),
			t.Profit.InexactFloat64(),
			t.Due.InexactFloat64(),
			t.Note,
		}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(exportSheet, "A", "A", 38)
	_ = f.SetColWidth(exportSheet, "B", "B", 18)
	_ = f.SetColWidth(exportSheet, "D", "D", 24)
	_ = f.SetColWidth(exportSheet, "L", "L", 32)
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetCellStyle(exportSheet, "A1", "L1", style)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
