// Package report exports the training history for people: CSV for tools
// and XLSX for spreadsheets.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/tokyo-appraiser/internal/dataset"
	"github.com/Veraticus/tokyo-appraiser/internal/model"
)

// DateLayout formats run timestamps in exports.
const DateLayout = "2006-01-02 15:04:05"

// SheetName is the worksheet holding the history in XLSX exports.
const SheetName = "Training History"

// Headers are the export columns, in order.
var Headers = []string{"date", "mae", "mape", "training_rows", "validation_rows", "run_id"}

func record(r model.TrainingRun) []string {
	return []string{
		r.RunAt.UTC().Format(DateLayout),
		strconv.FormatFloat(r.MAE, 'f', -1, 64),
		strconv.FormatFloat(r.MAPE, 'f', -1, 64),
		strconv.Itoa(r.TrainingRows),
		strconv.Itoa(r.ValidationRows),
		r.ID,
	}
}

// WriteCSV writes runs with a header row.
func WriteCSV(w io.Writer, runs []model.TrainingRun) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range runs {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("failed to write run %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes runs to a single-sheet workbook with typed cells.
func WriteXLSX(w io.Writer, runs []model.TrainingRun) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	yen, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(`"¥"#,##0`)})
	if err != nil {
		return fmt.Errorf("failed to create yen style: %w", err)
	}

	for j, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, r := range runs {
		row := i + 2
		values := []any{r.RunAt.UTC().Format(DateLayout), r.MAE, r.MAPE, r.TrainingRows, r.ValidationRows, r.ID}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write run %s: %w", r.ID, err)
			}
		}
		maeCell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(SheetName, maeCell, maeCell, yen); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetName, "A", "A", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "F", "F", 38); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ExportFile writes runs to path, choosing XLSX or CSV by extension. The
// previous file is replaced only after a complete write.
func ExportFile(path string, runs []model.TrainingRun) error {
	var write func(io.Writer, []model.TrainingRun) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		write = WriteXLSX
	case ".csv":
		write = WriteCSV
	default:
		return fmt.Errorf("unsupported export format %q (use .csv or .xlsx)", filepath.Ext(path))
	}
	return dataset.WriteFileAtomic(path, func(w io.Writer) error {
		return write(w, runs)
	})
}

func strPtr(s string) *string { return &s }
