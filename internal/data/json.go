package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"ercot-forecast/internal/model"
)

var ErrUnsupportedTable = errors.New("unsupported table JSON")

type tableDocument struct {
	Fields  []Field           `json:"fields"`
	Columns []string          `json:"columns"`
	Data    []json.RawMessage `json:"data"`
}

// DecodeTable reads a table from any of:
//
//	{"fields": [{"name": ...}], "data": [[...]]}   report payload
//	{"columns": [...], "data": [[...]]}            split layout
//	{"columns": [...], "data": [{...}]}            records with column order
//	[{...}, ...]                                   bare records
//
// Bare records carry no column order, so their columns come out sorted.
func DecodeTable(raw []byte) (model.Table, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return model.Table{}, fmt.Errorf("%w: empty document", ErrUnsupportedTable)
	}
	if raw[0] == '[' {
		var records []map[string]any
		if err := json.Unmarshal(raw, &records); err != nil {
			return model.Table{}, fmt.Errorf("%w: %v", ErrUnsupportedTable, err)
		}
		return fromRecords(nil, records), nil
	}

	var doc tableDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.Table{}, fmt.Errorf("%w: %v", ErrUnsupportedTable, err)
	}
	cols := doc.Columns
	if len(cols) == 0 {
		for _, f := range doc.Fields {
			cols = append(cols, f.Name)
		}
	}
	if len(doc.Data) == 0 {
		return model.NewTable(cols, nil), nil
	}

	first := bytes.TrimSpace(doc.Data[0])
	if len(first) > 0 && first[0] == '{' {
		records := make([]map[string]any, len(doc.Data))
		for i, m := range doc.Data {
			if err := json.Unmarshal(m, &records[i]); err != nil {
				return model.Table{}, fmt.Errorf("%w: row %d: %v", ErrUnsupportedTable, i, err)
			}
		}
		return fromRecords(cols, records), nil
	}

	rows := make([][]any, len(doc.Data))
	for i, m := range doc.Data {
		if err := json.Unmarshal(m, &rows[i]); err != nil {
			return model.Table{}, fmt.Errorf("%w: row %d: %v", ErrUnsupportedTable, i, err)
		}
	}
	resp := Response{Fields: make([]Field, len(cols)), Data: rows}
	for i, c := range cols {
		resp.Fields[i] = Field{Name: c}
	}
	return resp.Table(), nil
}

func fromRecords(cols []string, records []map[string]any) model.Table {
	if len(cols) == 0 {
		seen := map[string]bool{}
		for _, r := range records {
			for k := range r {
				if !seen[k] {
					seen[k] = true
					cols = append(cols, k)
				}
			}
		}
		sort.Strings(cols)
	}
	t := model.Table{Columns: append([]string(nil), cols...), Rows: make([]model.Row, 0, len(records))}
	for _, r := range records {
		row := make(model.Row, len(cols))
		for _, c := range cols {
			row[c] = r[c]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// LoadTableJSON reads a table file in any layout DecodeTable accepts.
func LoadTableJSON(path string) (model.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Table{}, err
	}
	t, err := DecodeTable(raw)
	if err != nil {
		return model.Table{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
