package services

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"royalty-dashboard/internal/models"
)

const (
	CSVFilename  = "royalties_filtered.csv"
	XLSXFilename = "royalties_filtered.xlsx"
	xlsxSheet    = "royalties"
)

// WriteCSV writes t with a header row of its columns.
func WriteCSV(w io.Writer, t *models.Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(t.Columns))
	for i := range t.Records {
		r := &t.Records[i]
		for c, col := range t.Columns {
			row[c] = r.Value(col)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteXLSX writes t as a single-sheet workbook. Revenue and units stay
// numeric cells.
func WriteXLSX(w io.Writer, t *models.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, len(t.Columns))
	for i, col := range t.Columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range t.Records {
		r := &t.Records[i]
		row := make([]interface{}, len(t.Columns))
		for c, col := range t.Columns {
			switch col {
			case models.ColNetRoyalty:
				row[c] = r.NetRoyalty
			case models.ColUnits:
				row[c] = r.Units
			default:
				row[c] = r.Value(col)
			}
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
