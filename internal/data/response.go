package data

import (
	"strconv"

	"ercot-forecast/internal/model"
)

type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	DataType string `json:"dataType,omitempty"`
}

// Meta is the pagination block of a report response.
type Meta struct {
	TotalRecords int `json:"totalRecords"`
	PageSize     int `json:"pageSize"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
}

// Response is a report payload: column metadata plus positional rows.
type Response struct {
	Fields []Field `json:"fields"`
	Data   [][]any `json:"data"`
	Meta   Meta    `json:"_meta"`

	// Pages is how many pages were merged into Data.
	Pages int `json:"-"`
	// Truncated is set when pagination stopped at the page limit.
	Truncated bool `json:"-"`
}

// Table converts the response to a raw table in field order. Without field
// metadata columns are named by position.
func (r *Response) Table() model.Table {
	width := len(r.Fields)
	if width == 0 {
		for _, rec := range r.Data {
			width = max(width, len(rec))
		}
	}
	cols := make([]string, width)
	for i := range cols {
		if i < len(r.Fields) {
			cols[i] = r.Fields[i].Name
		} else {
			cols[i] = positional(i)
		}
	}
	return model.NewTable(cols, r.Data)
}

func positional(i int) string {
	return "column_" + strconv.Itoa(i)
}
