package models

import "encoding/json"

// FetchRequest is the argument object of fetch_ercot_data.
type FetchRequest struct {
	Endpoint        string            `json:"endpoint_name" binding:"required"`
	DateFrom        string            `json:"date_from" binding:"required"` // YYYY-MM-DD
	DateTo          string            `json:"date_to,omitempty"`            // default: date_from
	SettlementPoint string            `json:"settlement_point,omitempty"`
	ResourceType    string            `json:"resource_type,omitempty"`
	Size            int               `json:"size,omitempty"`
	Params          map[string]string `json:"params,omitempty"` // extra query parameters
}

type ListEndpointsRequest struct {
	Category string `json:"category,omitempty" form:"category"` // default: all
}

type EndpointInfoRequest struct {
	Endpoint string `json:"endpoint_name" binding:"required"`
}

// NormalizeRequest carries a table as JSON, or as a string holding JSON.
type NormalizeRequest struct {
	DataframeJSON json.RawMessage `json:"dataframe_json" binding:"required"`
}

type VintageRequest struct {
	Endpoint        string `json:"endpoint_name" binding:"required"`
	DateFrom        string `json:"date_from" binding:"required"`
	DateTo          string `json:"date_to,omitempty"`
	SettlementPoint string `json:"settlement_point,omitempty"`
}

type NetLoadRequest struct {
	DateFrom string `json:"date_from,omitempty"` // default: tomorrow
	DateTo   string `json:"date_to,omitempty"`
}

type SplitsRequest struct {
	DataframeJSON       json.RawMessage `json:"dataframe_json" binding:"required"`
	InitialTrainingDays int             `json:"initial_training_days,omitempty"` // default: 15
	ExpandingWindow     *bool           `json:"expanding_window,omitempty"`      // default: true
}

type DayAheadRequest struct {
	ForecastDate     string `json:"forecast_date,omitempty"` // default: tomorrow
	TrainingDays     int    `json:"training_days,omitempty"`
	PolynomialDegree int    `json:"polynomial_degree,omitempty"`
}

type CVRequest struct {
	StartDate           string `json:"start_date,omitempty"`
	EndDate             string `json:"end_date,omitempty"`
	InitialTrainingDays int    `json:"initial_training_days,omitempty"`
	PolynomialDegree    int    `json:"polynomial_degree,omitempty"`
	ExpandingWindow     *bool  `json:"expanding_window,omitempty"`
}

// RankRequest represents a request to rank settlement points by price spread
type RankRequest struct {
	DateFrom        string `form:"date_from" binding:"required"`
	DateTo          string `form:"date_to,omitempty"`
	SettlementPoint string `form:"settlement_point,omitempty"`
	Limit           int    `form:"limit,omitempty"` // default: 10
}
