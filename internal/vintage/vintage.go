// Package vintage picks, for each forecast hour, the latest forecast that had
// been published by a cutoff. ERCOT republishes forecasts many times a day;
// a day-ahead model should only see what was known the morning before.
package vintage

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
	"ercot-forecast/internal/normalize"
)

const component = "vintage"

// CutoffLayout is the format of the postedDatetimeTo query parameter.
const CutoffLayout = "2006-01-02T15:04:05"

const (
	ModelColumn       = "Model"
	SystemTotalColumn = "SystemTotal"
)

// Columns the solar and wind reports carry that have no meaning once a
// single vintage per hour is kept.
var redundantColumns = []string{"DSTFlag", "HourEnding", "DeliveryDate"}

var (
	loadColumns   = regexp.MustCompile(`(?i)DATETIME|Model|SystemTotal|Posted`)
	modelFamilies = regexp.MustCompile(`^[EAMX][0-9]`)
)

// Cutoff returns the latest publication time accepted for a delivery window
// ending on dateTo: 07:00 the day before.
func Cutoff(dateTo time.Time) time.Time {
	return normalize.Date(dateTo).AddDate(0, 0, -1).Add(7 * time.Hour)
}

// Select applies the vintage rule to a normalized forecast table. Tables with
// a Model column are reduced per model and pivoted (see ByModel); others keep
// one row per DATETIME with the report-specific date columns dropped.
// A zero cutoff accepts every posting.
func Select(t model.Table, cutoff time.Time, sink diag.Sink) (model.Table, error) {
	if t.Empty() {
		return t.Clone(), nil
	}
	if t.HasColumn(ModelColumn) {
		return ByModel(t, cutoff, sink)
	}
	out, err := Latest(t, cutoff, sink)
	if err != nil {
		return model.Table{}, err
	}
	return out.Drop(redundantColumns...), nil
}

// Latest keeps, for every DATETIME, the row with the greatest PostedDatetime
// not after cutoff. Ties go to the row that appears later. Output is ordered
// by DATETIME.
func Latest(t model.Table, cutoff time.Time, sink diag.Sink) (model.Table, error) {
	if t.Empty() {
		return t.Clone(), nil
	}
	if err := t.Require(model.DatetimeColumn, model.PostedColumn); err != nil {
		return model.Table{}, err
	}
	t = t.Clone()
	idx, err := latestIndex(t, cutoff, sink, func(model.Row) string { return "" })
	if err != nil {
		return model.Table{}, err
	}
	out := model.Table{Columns: append([]string(nil), t.Columns...), Rows: make([]model.Row, 0, len(idx))}
	for _, i := range idx {
		out.Rows = append(out.Rows, t.Rows[i].Clone())
	}
	return out, nil
}

type groupKey struct {
	series string
	at     int64
}

type candidate struct {
	row    int
	posted time.Time
}

// latestIndex returns the indices of the winning rows, sorted by DATETIME and
// then series. Both time columns are parsed in place.
func latestIndex(t model.Table, cutoff time.Time, sink diag.Sink, seriesOf func(model.Row) string) ([]int, error) {
	best := make(map[groupKey]candidate)
	dropped := 0
	for i, row := range t.Rows {
		at, err := normalize.ParseTimestamp(row[model.DatetimeColumn])
		if err == nil {
			var posted time.Time
			posted, err = normalize.ParseTimestamp(row[model.PostedColumn])
			if err == nil {
				if !cutoff.IsZero() && posted.After(cutoff) {
					continue
				}
				row[model.DatetimeColumn] = at
				row[model.PostedColumn] = posted
				k := groupKey{series: seriesOf(row), at: at.UnixNano()}
				if cur, ok := best[k]; !ok || !posted.Before(cur.posted) {
					best[k] = candidate{row: i, posted: posted}
				}
				continue
			}
		}
		if !errors.Is(err, normalize.ErrNull) {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		dropped++
	}
	if dropped > 0 {
		diag.Warn(sink, diag.DroppedRows, component,
			"forecast rows without DATETIME or PostedDatetime ignored", "rows", dropped)
	}

	winners := make([]groupKey, 0, len(best))
	for k := range best {
		winners = append(winners, k)
	}
	sort.Slice(winners, func(i, j int) bool {
		if winners[i].at != winners[j].at {
			return winners[i].at < winners[j].at
		}
		return winners[i].series < winners[j].series
	})
	out := make([]int, len(winners))
	for i, k := range winners {
		out[i] = best[k].row
	}
	return out, nil
}

// ByModel handles ensemble forecasts such as the load forecast by model.
// Each model's latest vintage is selected independently, then models become
// columns holding their SystemTotal, and MedianLoadForecast is the row-wise
// median over the E*, A*, M* and X* model families. When no model name
// follows that convention every model column is used.
func ByModel(t model.Table, cutoff time.Time, sink diag.Sink) (model.Table, error) {
	if t.Empty() {
		return t.Clone(), nil
	}
	if err := t.Require(model.DatetimeColumn, model.PostedColumn, ModelColumn, SystemTotalColumn); err != nil {
		return model.Table{}, err
	}
	keep := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if loadColumns.MatchString(c) {
			keep = append(keep, c)
		}
	}
	t = t.Select(keep...)

	idx, err := latestIndex(t, cutoff, sink, func(r model.Row) string { return fmt.Sprint(r[ModelColumn]) })
	if err != nil {
		return model.Table{}, err
	}

	models := make([]string, 0)
	seenModel := make(map[string]bool)
	byTime := make(map[int64]model.Row)
	order := make([]time.Time, 0)
	for _, i := range idx {
		row := t.Rows[i]
		name := fmt.Sprint(row[ModelColumn])
		at := row[model.DatetimeColumn].(time.Time)
		if !seenModel[name] {
			seenModel[name] = true
			models = append(models, name)
		}
		wide, ok := byTime[at.UnixNano()]
		if !ok {
			wide = model.Row{model.DatetimeColumn: at}
			byTime[at.UnixNano()] = wide
			order = append(order, at)
		}
		if v, ok := row.Float(SystemTotalColumn); ok {
			wide[name] = v
		} else {
			wide[name] = nil
		}
	}
	sort.Strings(models)

	family := make([]string, 0, len(models))
	for _, m := range models {
		if modelFamilies.MatchString(m) {
			family = append(family, m)
		}
	}
	if len(family) == 0 {
		family = models
	}

	out := model.Table{Columns: append(append([]string{model.DatetimeColumn}, models...), model.LoadColumn)}
	out.Rows = make([]model.Row, 0, len(order))
	for _, at := range order {
		wide := byTime[at.UnixNano()]
		for _, m := range models {
			if _, ok := wide[m]; !ok {
				wide[m] = nil
			}
		}
		wide[model.LoadColumn] = median(wide, family)
		out.Rows = append(out.Rows, wide)
	}
	return out, nil
}

// median skips missing values; a row with none yields nil.
func median(row model.Row, columns []string) any {
	vals := make([]float64, 0, len(columns))
	for _, c := range columns {
		if v, ok := model.Float(row[c]); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)
	n := len(vals)
	if n%2 == 1 {
		return vals[n/2]
	}
	return (vals[n/2-1] + vals[n/2]) / 2
}
