// Package export writes tables to CSV and Excel files.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/xuri/excelize/v2"

	"ercot-forecast/internal/model"
)

const (
	timeLayout = "2006-01-02T15:04:05"
	sheetName  = "data"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// WriteCSV writes a header row followed by one line per table row. Null
// cells are written empty.
func WriteCSV(w io.Writer, t model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, c := range t.Columns {
			record[i] = fmtCell(row[c])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the table to a single-sheet workbook. Numbers stay
// numeric; times are written as text in the CSV layout.
func WriteXLSX(w io.Writer, t model.Table) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	for i, c := range t.Columns {
		if err := setCell(f, i, 1, c); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for i, c := range t.Columns {
			v := xlsxValue(row[c])
			if v == nil {
				continue
			}
			if err := setCell(f, i, r+2, v); err != nil {
				return err
			}
		}
	}
	_, err := f.WriteTo(w)
	return err
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheetName, cell, v)
}

// WriteFile picks the format from the file extension: .csv or .xlsx.
func WriteFile(path string, t model.Table) error {
	var write func(io.Writer, model.Table) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteCSV
	case ".xlsx":
		write = WriteXLSX
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func fmtCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return fmtTime(x)
	case float64:
		return fmtFloat(x)
	case null.Float:
		if !x.Valid {
			return ""
		}
		return fmtFloat(x.Float64)
	case string:
		return x
	}
	if f, ok := model.Float(v); ok {
		return fmtFloat(f)
	}
	return fmt.Sprint(v)
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		return fmtTime(x)
	case null.Float:
		if !x.Valid {
			return nil
		}
		return x.Float64
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return x
	case string, bool, int, int64:
		return x
	}
	if f, ok := model.Float(v); ok {
		return f
	}
	return fmt.Sprint(v)
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
