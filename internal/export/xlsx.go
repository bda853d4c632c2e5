package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/coinledger/holdings/internal/domain"
)

// XLSXWriter implements RecordWriter by writing a workbook per run into a
// local directory. Each workbook carries a Records sheet and a Summary sheet.
type XLSXWriter struct {
	dir string
}

// NewXLSXWriter creates an XLSX writer targeting the given directory.
func NewXLSXWriter(dir string) *XLSXWriter {
	return &XLSXWriter{dir: dir}
}

// Write renders the run into <dir>/holdings_<timestamp>.xlsx.
func (w *XLSXWriter) Write(_ context.Context, summary domain.RunSummary, records []domain.FinancialRecord) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const recordsSheet = "Records"
	if err := f.SetSheetName(f.GetSheetName(0), recordsSheet); err != nil {
		return fmt.Errorf("renaming records sheet: %w", err)
	}
	if err := writeRows(f, recordsSheet, recordRows(records)); err != nil {
		return err
	}

	const summarySheet = "Summary"
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	if err := writeRows(f, summarySheet, summaryRows(records)); err != nil {
		return err
	}

	name := fmt.Sprintf("holdings_%s.xlsx", summary.StartedAt.UTC().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

func recordRows(records []domain.FinancialRecord) [][]any {
	rows := make([][]any, 0, len(records)+1)
	rows = append(rows, recordHeader)
	for _, r := range records {
		rows = append(rows, recordRow(r))
	}
	return rows
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("computing cell for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d to %s: %w", i+1, sheet, err)
		}
	}
	return nil
}
