package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// Column names of a composed net load series.
const (
	SolarColumn      = "SolarHSLSystemWide"
	WindColumn       = "WindHSLSystemWide"
	LoadColumn       = "MedianLoadForecast"
	RenewablesColumn = "Renewables"
	NetLoadColumn    = "NetLoad"
	LambdaColumn     = "SystemLambda"
)

// NetLoadRow is one hour of forecast demand that dispatchable generation must cover.
// Load and NetLoad are null when no load forecast matched the hour.
type NetLoadRow struct {
	Datetime           time.Time  `json:"DATETIME"`
	SolarForecast      float64    `json:"SolarHSLSystemWide"`
	WindForecast       float64    `json:"WindHSLSystemWide"`
	MedianLoadForecast null.Float `json:"MedianLoadForecast"`
	Renewables         float64    `json:"Renewables"`
	NetLoad            null.Float `json:"NetLoad"`
}

// PricePoint is one hourly system lambda observation in $/MWh.
type PricePoint struct {
	Datetime     time.Time `json:"DATETIME"`
	SystemLambda float64   `json:"SystemLambda"`
}

// NetLoadTable renders rows in the column layout the table tools return.
func NetLoadTable(rows []NetLoadRow) Table {
	t := Table{
		Columns: []string{DatetimeColumn, SolarColumn, WindColumn, LoadColumn, RenewablesColumn, NetLoadColumn},
		Rows:    make([]Row, 0, len(rows)),
	}
	for _, r := range rows {
		t.Rows = append(t.Rows, Row{
			DatetimeColumn:   r.Datetime,
			SolarColumn:      r.SolarForecast,
			WindColumn:       r.WindForecast,
			LoadColumn:       nullable(r.MedianLoadForecast),
			RenewablesColumn: r.Renewables,
			NetLoadColumn:    nullable(r.NetLoad),
		})
	}
	return t
}

func nullable(f null.Float) any {
	if !f.Valid {
		return nil
	}
	return f.Float64
}
