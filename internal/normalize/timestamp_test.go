package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResolveHourEnding(t *testing.T) {
	base := ts("2024-01-01T00:00")
	cases := []struct {
		in   any
		want time.Time
	}{
		{1, ts("2024-01-01T00:00")},
		{1.0, ts("2024-01-01T00:00")},
		{"24:00", ts("2024-01-01T23:00")},
		{"13:00", ts("2024-01-01T12:00")},
		{"7", ts("2024-01-01T06:00")},
		{24, ts("2024-01-01T23:00")},
	}
	for _, c := range cases {
		got, err := ResolveHourEnding(base, c.in)
		require.NoError(t, err, "hour ending %v", c.in)
		assert.Equal(t, c.want, got, "hour ending %v", c.in)
	}
}

func TestResolveHourEndingRejectsOutOfRange(t *testing.T) {
	base := ts("2024-01-01T00:00")
	for _, in := range []any{0, 25, "00:00", "abc", 1.5} {
		_, err := ResolveHourEnding(base, in)
		assert.ErrorIs(t, err, ErrInvalidHour, "hour ending %v", in)
	}
}

func TestAddDatetimePatterns(t *testing.T) {
	cases := []struct {
		name    string
		columns []string
		row     []any
		pattern Pattern
		want    time.Time
	}{
		{
			name:    "delivery interval",
			columns: []string{"DeliveryDate", "DeliveryHour", "DeliveryInterval"},
			row:     []any{"2024-02-01", 3.0, 2.0},
			pattern: PatternDeliveryInterval,
			want:    ts("2024-02-01T03:10"),
		},
		{
			name:    "interval ending",
			columns: []string{"IntervalEnding"},
			row:     []any{"2024-02-01T10:05:00"},
			pattern: PatternIntervalEnding,
			want:    ts("2024-02-01T10:05"),
		},
		{
			name:    "operating day",
			columns: []string{"OperatingDay", "HourEnding"},
			row:     []any{"2024-02-01", "24:00"},
			pattern: PatternOperatingDay,
			want:    ts("2024-02-01T23:00"),
		},
		{
			name:    "operating date",
			columns: []string{"OperatingDate", "HourEnding"},
			row:     []any{"2024-02-01", 5.0},
			pattern: PatternOperatingDate,
			want:    ts("2024-02-01T04:00"),
		},
		{
			name:    "delivery hour",
			columns: []string{"DeliveryDate", "DeliveryHour"},
			row:     []any{"2024-02-01", 1.0},
			pattern: PatternDeliveryHour,
			want:    ts("2024-02-01T01:00"),
		},
		{
			name:    "delivery hour ending",
			columns: []string{"DeliveryDate", "HourEnding"},
			row:     []any{"2024-02-01", "13:00"},
			pattern: PatternDeliveryHourEnding,
			want:    ts("2024-02-01T12:00"),
		},
		{
			name:    "sced timestamp",
			columns: []string{"SCEDTimestamp"},
			row:     []any{"2024-02-01T10:05:12"},
			pattern: PatternSCED,
			want:    ts("2024-02-01T10:05").Add(12 * time.Second),
		},
		{
			name:    "sced time stamp",
			columns: []string{"SCEDTimeStamp"},
			row:     []any{"02/01/2024 10:05:00"},
			pattern: PatternSCED,
			want:    ts("2024-02-01T10:05"),
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.pattern, DetectPattern(c.columns))

			out, err := AddDatetime(model.NewTable(c.columns, [][]any{c.row}), diag.Nop)
			require.NoError(t, err)
			require.True(t, out.HasColumn(model.DatetimeColumn))
			assert.Equal(t, c.want, out.Rows[0][model.DatetimeColumn])
		})
	}
}

func TestPatternPriority(t *testing.T) {
	row := model.Row{
		"DeliveryDate":     "2024-02-01",
		"DeliveryHour":     2.0,
		"DeliveryInterval": 1.0,
		"SCEDTimestamp":    "2024-05-05T05:05:05",
	}
	got, pattern, err := ResolveRow(row)
	require.NoError(t, err)
	assert.Equal(t, PatternDeliveryInterval, pattern)
	assert.Equal(t, ts("2024-02-01T02:05"), got)
}

func TestPatternOneNeedsAllColumns(t *testing.T) {
	assert.Equal(t, PatternSCED, DetectPattern([]string{"DeliveryInterval", "SCEDTimestamp"}))
}

func TestAddDatetimeUnrecognized(t *testing.T) {
	rec := diag.NewRecorder()
	raw := model.NewTable([]string{"Foo"}, [][]any{{1.0}})

	out, err := AddDatetime(raw, rec)

	require.NoError(t, err)
	assert.False(t, out.HasColumn(model.DatetimeColumn))
	assert.Equal(t, raw, out)
	assert.Equal(t, 1, rec.Count(diag.UnrecognizedTimestamp))
}

func TestAddDatetimeNullComponent(t *testing.T) {
	rec := diag.NewRecorder()
	raw := model.NewTable([]string{"DeliveryDate", "HourEnding"}, [][]any{
		{"2024-02-01", "01:00"},
		{nil, "02:00"},
	})

	out, err := AddDatetime(raw, rec)

	require.NoError(t, err)
	assert.Equal(t, ts("2024-02-01T00:00"), out.Rows[0][model.DatetimeColumn])
	assert.Nil(t, out.Rows[1][model.DatetimeColumn])
	assert.True(t, rec.Has(diag.NullTimestamp))
}

func TestAddDatetimeParseError(t *testing.T) {
	raw := model.NewTable([]string{"IntervalEnding"}, [][]any{{"not a time"}})
	_, err := AddDatetime(raw, diag.Nop)
	assert.ErrorIs(t, err, ErrInvalidTimestamp)
}

func TestAddDatetimeRejectsOutOfRangeIndexes(t *testing.T) {
	cases := []struct {
		name string
		hour any
		iv   any
	}{
		{"huge interval", 1.0, 1e15},
		{"interval past the hour", 1.0, 13.0},
		{"hour past the day", 25.0, 1.0},
		{"negative hour", -1.0, 1.0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			raw := model.NewTable(
				[]string{"DeliveryDate", "DeliveryHour", "DeliveryInterval"},
				[][]any{{"2024-02-01", c.hour, c.iv}},
			)
			_, err := AddDatetime(raw, diag.Nop)
			assert.ErrorIs(t, err, ErrInvalidHour)
		})
	}

	raw := model.NewTable([]string{"DeliveryDate", "DeliveryHour"}, [][]any{{"2024-02-01", 30.0}})
	_, err := AddDatetime(raw, diag.Nop)
	assert.ErrorIs(t, err, ErrInvalidHour)
}

func TestParseTimestampDropsOffset(t *testing.T) {
	got, err := ParseTimestamp("2024-02-01T10:00:00-06:00")
	require.NoError(t, err)
	assert.Equal(t, ts("2024-02-01T10:00"), got)
}

func TestTableEndToEnd(t *testing.T) {
	raw := model.NewTable(
		[]string{"DeliveryDate", "DeliveryHour", "SettlementPointPrice"},
		[][]any{{"2024-02-01", 1.0, 25.5}},
	)

	out, err := Table(raw, diag.Nop)

	require.NoError(t, err)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, ts("2024-02-01T01:00"), out.Rows[0][model.DatetimeColumn])
	assert.Equal(t, 25.5, out.Rows[0]["SettlementPointPrice"])
}

func TestHourlyAverage(t *testing.T) {
	raw := model.NewTable(
		[]string{"DeliveryDate", "DeliveryHour", "DeliveryInterval", "SettlementPoint", "SettlementPointPrice"},
		[][]any{
			{"2024-02-01", 1.0, 1.0, "HB_NORTH", 10.0},
			{"2024-02-01", 1.0, 2.0, "HB_NORTH", 20.0},
			{"2024-02-01", 1.0, 1.0, "HB_HOUSTON", 40.0},
			{"2024-02-01", 2.0, 1.0, "HB_NORTH", 5.0},
		},
	)

	out, err := HourlyAverage(raw, diag.Nop)

	require.NoError(t, err)
	assert.Equal(t, []string{model.DatetimeColumn, "SettlementPoint", "RTLMP"}, out.Columns)
	require.Len(t, out.Rows, 3)
	assert.Equal(t, "HB_HOUSTON", out.Rows[0]["SettlementPoint"])
	assert.Equal(t, 40.0, out.Rows[0]["RTLMP"])
	assert.Equal(t, "HB_NORTH", out.Rows[1]["SettlementPoint"])
	assert.Equal(t, 15.0, out.Rows[1]["RTLMP"])
	assert.Equal(t, ts("2024-02-01T02:00"), out.Rows[2][model.DatetimeColumn])
}
