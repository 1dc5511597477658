// Package netload combines solar, wind and load forecasts into net load:
// the demand left for dispatchable generation once renewables are netted out.
package netload

import (
	"strings"

	"github.com/guregu/null/v6"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
)

const component = "netload"

// Name markers of the system-wide high sustainable limit columns in the
// solar and wind forecast reports, most specific first.
var renewableMarkers = [][]string{
	{"COPHSL", "SystemWide"},
	{"HSL", "SystemWide"},
}

// RenewableColumn finds the system-wide capability column of a solar or wind
// forecast table.
func RenewableColumn(columns []string) (string, bool) {
	for _, markers := range renewableMarkers {
		for _, c := range columns {
			if containsAll(c, markers) {
				return c, true
			}
		}
	}
	return "", false
}

func containsAll(s string, parts []string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}

// Compose left-joins wind and load onto the solar hours. A missing renewable
// column counts as zero generation; an hour with no load forecast keeps a null
// MedianLoadForecast and NetLoad.
func Compose(solar, wind, load model.Table, sink diag.Sink) ([]model.NetLoadRow, error) {
	if solar.Empty() {
		return []model.NetLoadRow{}, nil
	}
	if err := solar.Require(model.DatetimeColumn); err != nil {
		return nil, err
	}
	solarCol, solarOK := renewable(solar, "solar", model.SolarColumn, sink)
	windCol, windOK := renewable(wind, "wind", model.WindColumn, sink)

	windAt := make(map[int64]float64)
	if windOK {
		if err := wind.Require(model.DatetimeColumn); err != nil {
			return nil, err
		}
		for _, row := range wind.Rows {
			ts, ok := row.Time(model.DatetimeColumn)
			if !ok {
				continue
			}
			if _, seen := windAt[ts.UnixNano()]; seen {
				continue
			}
			v, _ := row.Float(windCol)
			windAt[ts.UnixNano()] = v
		}
	}

	loadAt := make(map[int64]float64)
	if !load.Empty() {
		if err := load.Require(model.DatetimeColumn, model.LoadColumn); err != nil {
			return nil, err
		}
		for _, row := range load.Rows {
			ts, ok := row.Time(model.DatetimeColumn)
			if !ok {
				continue
			}
			if v, ok := row.Float(model.LoadColumn); ok {
				if _, seen := loadAt[ts.UnixNano()]; !seen {
					loadAt[ts.UnixNano()] = v
				}
			}
		}
	}

	out := make([]model.NetLoadRow, 0, len(solar.Rows))
	dropped := 0
	for _, row := range solar.Rows {
		ts, ok := row.Time(model.DatetimeColumn)
		if !ok {
			dropped++
			continue
		}
		r := model.NetLoadRow{Datetime: ts}
		if solarOK {
			r.SolarForecast, _ = row.Float(solarCol)
		}
		r.WindForecast = windAt[ts.UnixNano()]
		r.Renewables = r.SolarForecast + r.WindForecast
		if l, ok := loadAt[ts.UnixNano()]; ok {
			r.MedianLoadForecast = null.FloatFrom(l)
			r.NetLoad = null.FloatFrom(l - r.Renewables)
		}
		out = append(out, r)
	}
	if dropped > 0 {
		diag.Warn(sink, diag.DroppedRows, component, "solar rows without DATETIME skipped", "rows", dropped)
	}
	return out, nil
}

func renewable(t model.Table, source, canonical string, sink diag.Sink) (string, bool) {
	col, ok := RenewableColumn(t.Columns)
	if !ok {
		diag.Warn(sink, diag.MissingRenewableColumn, component,
			"no system-wide HSL column; using zero",
			"source", source, "column", canonical)
	}
	return col, ok
}
