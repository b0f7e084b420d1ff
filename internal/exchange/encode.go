package exchange

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteCSV streams the export table as CSV, headers first.
func WriteCSV(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSV parses an import file into raw rows keyed by the header line.
// Short rows pad with empty strings so the row set stays rectangular.
func ReadCSV(r io.Reader) ([]map[string]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	all, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	headers := all[0]
	rows := make([]map[string]any, 0, len(all)-1)
	for _, line := range all[1:] {
		row := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(line) {
				row[h] = line[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadXLSX parses the first sheet of a workbook into raw rows keyed by the
// header line, padding short rows like ReadCSV.
func ReadXLSX(r io.Reader) ([]map[string]any, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	all, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	headers := all[0]
	rows := make([]map[string]any, 0, len(all)-1)
	for _, line := range all[1:] {
		row := make(map[string]any, len(headers))
		for i, h := range headers {
			if i < len(line) {
				row[h] = line[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// WriteXLSX writes the export table as a single-sheet workbook.
func WriteXLSX(w io.Writer, sheet string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return fmt.Errorf("drop default sheet: %w", err)
		}
	}

	writeRow := func(rowIdx int, values []string) error {
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeRow(1, headers); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, row := range rows {
		if err := writeRow(i+2, row); err != nil {
			return fmt.Errorf("write xlsx row %d: %w", i, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
