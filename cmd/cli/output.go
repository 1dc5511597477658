package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"ercot-forecast/internal/export"
	"ercot-forecast/internal/model"
)

// emitTable writes t to --out when given and prints it to w.
func (a *app) emitTable(w io.Writer, t model.Table) error {
	if a.outPath != "" {
		if err := os.MkdirAll(filepath.Dir(a.outPath), 0o755); err != nil {
			return err
		}
		if err := export.WriteFile(a.outPath, t); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", t.Len(), a.outPath)
	}
	if a.asJSON {
		return a.emitJSON(w, tableRecords(t, a.maxRows))
	}
	printTable(w, t, a.maxRows)
	return nil
}

func (a *app) emitJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func tableRecords(t model.Table, maxRows int) []map[string]any {
	rows := t.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	out := make([]map[string]any, len(rows))
	for i, r := range rows {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			rec[c] = r[c]
		}
		out[i] = rec
	}
	return out
}

func printTable(w io.Writer, t model.Table, maxRows int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	rows := t.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	cells := make([]string, len(t.Columns))
	for _, r := range rows {
		for i, c := range t.Columns {
			cells[i] = cell(r[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
	if len(rows) < t.Len() {
		fmt.Fprintf(w, "... %d of %d rows shown\n", len(rows), t.Len())
	}
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format("2006-01-02 15:04")
	case string:
		return x
	}
	if f, ok := model.Float(v); ok {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	return fmt.Sprint(v)
}
