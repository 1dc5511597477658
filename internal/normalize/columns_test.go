package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
)

func TestColumnName(t *testing.T) {
	cases := map[string]string{
		"settlementPointPrice": "SettlementPointPrice",
		"delivery_date":        "DeliveryDate",
		"Hour Ending":          "HourEnding",
		"hour-ending":          "HourEnding",
		"DSTFlag":              "DSTFlag",
		"SCEDTimestamp":        "SCEDTimestamp",
		"SCEDTimeStamp":        "SCEDTimeStamp",
		"deliveryDate":         "DeliveryDate",
		"postedDatetime":       "PostedDatetime",
		"model":                "Model",
		"HB_NORTH":             "HBNORTH",
		"COPHSLSystemWide":     "COPHSLSystemWide",
		"":                     "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ColumnName(in), "ColumnName(%q)", in)
	}
}

func TestColumnNameKeepsSegmentCase(t *testing.T) {
	// only the first letter of a segment changes; acronyms are not lowered
	cases := map[string]string{
		"SCED_timestamp":  "SCEDTimestamp",
		"dst_FLAG":        "DstFLAG",
		"hsl_SystemWide":  "HslSystemWide",
		"repeated_HOUR_x": "RepeatedHOURX",
	}
	for in, want := range cases {
		assert.Equal(t, want, ColumnName(in), "ColumnName(%q)", in)
		assert.Equal(t, want, ColumnName(want), "second pass of %q", in)
	}
}

func TestColumnNameIdempotent(t *testing.T) {
	inputs := []string{
		"settlementPointPrice", "delivery_date", "Hour Ending", "SCEDTimestamp",
		"5min_value", "a", "_x_", "systemLambda", "genResourceName", "HB_NORTH",
		"Mixed-case Name_with parts", "DATETIME", "ünicodeField",
	}
	for _, in := range inputs {
		once := ColumnName(in)
		assert.Equal(t, once, ColumnName(once), "second pass changed %q", in)
	}
}

func TestColumnsDuplicateKeepsFirst(t *testing.T) {
	rec := diag.NewRecorder()
	raw := model.NewTable([]string{"deliveryDate", "delivery_date"}, [][]any{{"2024-01-01", "2024-02-02"}})

	out := Columns(raw, rec)

	assert.Equal(t, []string{"DeliveryDate"}, out.Columns)
	assert.Equal(t, "2024-01-01", out.Rows[0]["DeliveryDate"])
	require.True(t, rec.Has(diag.DuplicateColumn))
}

func TestTableIdempotent(t *testing.T) {
	tables := []model.Table{
		model.NewTable(
			[]string{"deliveryDate", "hourEnding", "settlementPoint", "settlementPointPrice", "DSTFlag"},
			[][]any{{"2024-01-01", "01:00", "HB_NORTH", 21.5, false}, {"2024-01-01", "24:00", "HB_NORTH", 30.0, false}},
		),
		model.NewTable(
			[]string{"SCEDTimestamp", "systemLambda"},
			[][]any{{"2024-01-01T10:05:00", 22.1}},
		),
		model.NewTable([]string{"foo", "bar"}, [][]any{{1.0, "x"}}),
	}
	for _, raw := range tables {
		once, err := Table(raw, diag.Nop)
		require.NoError(t, err)
		twice, err := Table(once, diag.Nop)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}
