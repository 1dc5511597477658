package normalize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
)

const component = "normalize"

var (
	separators   = strings.NewReplacer("-", "_", " ", "_")
	caseBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// ColumnName converts an upstream field name to PascalCase.
//
//	settlementPointPrice -> SettlementPointPrice
//	delivery_date        -> DeliveryDate
//	Hour Ending          -> HourEnding
//	SCEDTimestamp        -> SCEDTimestamp
//
// Only the first letter of each segment is raised; the rest is kept as is,
// so acronyms survive and the conversion is idempotent.
func ColumnName(name string) string {
	name = separators.Replace(name)
	if r, _ := utf8.DecodeRuneInString(name); unicode.IsUpper(r) && !strings.Contains(name, "_") {
		return name
	}
	name = caseBoundary.ReplaceAllString(name, "${1}_${2}")
	var b strings.Builder
	b.Grow(len(name))
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		r, size := utf8.DecodeRuneInString(part)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(part[size:])
	}
	return b.String()
}

// Columns renames every column with ColumnName. When two upstream fields map
// to the same name the first one wins and a duplicate_column event is emitted.
func Columns(t model.Table, sink diag.Sink) model.Table {
	out := model.Table{Columns: make([]string, 0, len(t.Columns)), Rows: make([]model.Row, len(t.Rows))}
	source := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		n := ColumnName(c)
		if prev, dup := source[n]; dup {
			diag.Warn(sink, diag.DuplicateColumn, component,
				"column maps to an existing name; keeping the first",
				"column", c, "normalized", n, "kept", prev)
			continue
		}
		source[n] = c
		out.Columns = append(out.Columns, n)
	}
	for i, r := range t.Rows {
		row := make(model.Row, len(out.Columns))
		for _, n := range out.Columns {
			row[n] = r[source[n]]
		}
		out.Rows[i] = row
	}
	return out
}
