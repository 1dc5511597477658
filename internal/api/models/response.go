package models

import (
	"fmt"

	"ercot-forecast/internal/analysis"
	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
)

// ToolResponse wraps the result of one tool call with the warnings raised
// while producing it.
type ToolResponse struct {
	Tool     string       `json:"tool"`
	Message  string       `json:"message,omitempty"`
	Result   any          `json:"result"`
	Warnings []diag.Event `json:"warnings"`
}

// ToolInfo describes a callable tool
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a tool parameter
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "string", "integer", "boolean", "object"
	Description string `json:"description"`
	Required    bool   `json:"required,omitempty"`
	Default     any    `json:"default,omitempty"`
}

type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// TableResponse is a table rendered as records.
type TableResponse struct {
	Warning string           `json:"warning,omitempty"`
	Shape   Shape            `json:"shape"`
	Columns []string         `json:"columns"`
	Data    []map[string]any `json:"data"`
}

// NewTableResponse renders at most maxRows rows of t; shape always reports
// the full table. maxRows <= 0 means no limit.
func NewTableResponse(t model.Table, maxRows int) TableResponse {
	resp := TableResponse{
		Shape:   Shape{Rows: t.Len(), Columns: len(t.Columns)},
		Columns: append([]string{}, t.Columns...),
	}
	rows := t.Rows
	if maxRows > 0 && len(rows) > maxRows {
		resp.Warning = fmt.Sprintf("Result truncated to %d rows (total: %d rows)", maxRows, len(rows))
		rows = rows[:maxRows]
	}
	resp.Data = make([]map[string]any, len(rows))
	for i, row := range rows {
		rec := make(map[string]any, len(t.Columns))
		for _, c := range t.Columns {
			rec[c] = row[c]
		}
		resp.Data[i] = rec
	}
	return resp
}

// SplitInfo summarizes one walk-forward fold
type SplitInfo struct {
	Split      int    `json:"split"`
	TestDate   string `json:"test_date"`
	TrainStart string `json:"train_start"`
	TrainEnd   string `json:"train_end"`
	TrainRows  int    `json:"train_rows"`
	TestRows   int    `json:"test_rows"`
}

// RankResponse represents the response from ranking settlement points
type RankResponse struct {
	Rankings []Ranking    `json:"rankings"`
	Count    int          `json:"count"`
	Warnings []diag.Event `json:"warnings"`
}

// Ranking represents one ranked settlement point
type Ranking struct {
	Rank int `json:"rank"`
	analysis.RankedSummary
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
