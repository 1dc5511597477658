package model

import (
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableShortRecords(t *testing.T) {
	tbl := NewTable([]string{"a", "b"}, [][]any{{1.0, "x"}, {2.0}})
	require.Equal(t, 2, tbl.Len())
	assert.Nil(t, tbl.Rows[1]["b"])
	_, present := tbl.Rows[1]["b"]
	assert.True(t, present)
}

func TestRequire(t *testing.T) {
	tbl := NewTable([]string{"a"}, nil)
	assert.NoError(t, tbl.Require("a"))
	err := tbl.Require("a", "b")
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "b")
}

func TestSelectDrop(t *testing.T) {
	tbl := NewTable([]string{"a", "b", "c"}, [][]any{{1.0, 2.0, 3.0}})

	sel := tbl.Select("c", "missing", "a")
	assert.Equal(t, []string{"c", "a"}, sel.Columns)
	assert.NotContains(t, sel.Rows[0], "b")

	assert.Equal(t, []string{"a", "c"}, tbl.Drop("b").Columns)
	// the source table is untouched
	assert.Equal(t, []string{"a", "b", "c"}, tbl.Columns)
}

func TestFloatAndIsNull(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{7, 7, true},
		{" 2.25 ", 2.25, true},
		{"", 0, false},
		{"n/a", 0, false},
		{math.NaN(), 0, false},
		{null.FloatFrom(3), 3, true},
		{null.Float{}, 0, false},
		{true, 0, false},
		{nil, 0, false},
	}
	for _, c := range cases {
		got, ok := Float(c.in)
		assert.Equal(t, c.ok, ok, "%#v", c.in)
		if c.ok {
			assert.InDelta(t, c.want, got, 1e-12)
		}
	}

	assert.True(t, IsNull(nil))
	assert.True(t, IsNull("  "))
	assert.True(t, IsNull(math.NaN()))
	assert.True(t, IsNull(null.Float{}))
	assert.False(t, IsNull(0.0))
	assert.False(t, IsNull("x"))
}

func TestNetLoadTable(t *testing.T) {
	ts := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tbl := NetLoadTable([]NetLoadRow{
		{Datetime: ts, SolarForecast: 10, WindForecast: 20, MedianLoadForecast: null.FloatFrom(100), Renewables: 30, NetLoad: null.FloatFrom(70)},
		{Datetime: ts.Add(time.Hour), SolarForecast: 10, WindForecast: 20, Renewables: 30},
	})
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, 70.0, tbl.Rows[0][NetLoadColumn])
	assert.Nil(t, tbl.Rows[1][NetLoadColumn])
	assert.Nil(t, tbl.Rows[1][LoadColumn])
}
