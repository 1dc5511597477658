// Package normalize turns raw ERCOT report tables into a common shape:
// PascalCase column names and a single DATETIME column resolved from
// whichever of the report-specific timestamp encodings the table uses.
package normalize

import (
	"fmt"
	"sort"
	"time"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
)

// Table runs the full pipeline: column names first, then DATETIME.
// Applying it to its own output returns an equal table.
func Table(t model.Table, sink diag.Sink) (model.Table, error) {
	return AddDatetime(Columns(t, sink), sink)
}

const (
	SettlementPointColumn = "SettlementPoint"
	SettlementPriceColumn = "SettlementPointPrice"
	HourlyPriceColumn     = "RTLMP"
)

type hourKey struct {
	hour  int64
	point string
}

// HourlyAverage folds 5-minute settlement point prices into hourly means per
// settlement point. The result has DATETIME (hour start), SettlementPoint when
// the input carries it, and RTLMP.
func HourlyAverage(t model.Table, sink diag.Sink) (model.Table, error) {
	if !t.HasColumn(model.DatetimeColumn) {
		var err error
		if t, err = AddDatetime(t, sink); err != nil {
			return model.Table{}, err
		}
	}
	if err := t.Require(model.DatetimeColumn, SettlementPriceColumn); err != nil {
		return model.Table{}, err
	}
	byPoint := t.HasColumn(SettlementPointColumn)

	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[hourKey]*acc)
	order := make([]hourKey, 0)
	skipped := 0
	for _, row := range t.Rows {
		ts, ok := row.Time(model.DatetimeColumn)
		price, pok := row.Float(SettlementPriceColumn)
		if !ok || !pok {
			skipped++
			continue
		}
		k := hourKey{hour: ts.Truncate(time.Hour).Unix()}
		if byPoint {
			k.point = fmt.Sprint(row[SettlementPointColumn])
		}
		a, seen := groups[k]
		if !seen {
			a = &acc{}
			groups[k] = a
			order = append(order, k)
		}
		a.sum += price
		a.count++
	}
	if skipped > 0 {
		diag.Warn(sink, diag.DroppedRows, component,
			"rows without DATETIME or price left out of hourly average", "rows", skipped)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].hour != order[j].hour {
			return order[i].hour < order[j].hour
		}
		return order[i].point < order[j].point
	})

	out := model.Table{Columns: []string{model.DatetimeColumn}}
	if byPoint {
		out.Columns = append(out.Columns, SettlementPointColumn)
	}
	out.Columns = append(out.Columns, HourlyPriceColumn)
	out.Rows = make([]model.Row, 0, len(order))
	for _, k := range order {
		a := groups[k]
		row := model.Row{
			model.DatetimeColumn: time.Unix(k.hour, 0).UTC(),
			HourlyPriceColumn:    a.sum / float64(a.count),
		}
		if byPoint {
			row[SettlementPointColumn] = k.point
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
