package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ercot-forecast/internal/model"
)

func TestSummarize(t *testing.T) {
	vals := make([]float64, 0, 21)
	for i := 0; i <= 20; i++ {
		vals = append(vals, float64(i))
	}
	vals = append(vals, math.NaN())

	s := Summarize(vals)
	assert.Equal(t, 21, s.Count)
	assert.Equal(t, 0.0, s.Min)
	assert.Equal(t, 20.0, s.Max)
	assert.InDelta(t, 10.0, s.Mean, 1e-12)
	assert.InDelta(t, 1.0, s.P05, 1e-12)
	assert.InDelta(t, 19.0, s.P95, 1e-12)
	assert.InDelta(t, 18.0, s.Spread, 1e-12)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
	assert.Equal(t, Summary{}, Summarize([]float64{math.NaN()}))
}

func TestRankBySpread(t *testing.T) {
	tbl := model.NewTable([]string{"SettlementPoint", "RTLMP"}, [][]any{
		{"HB_HOUSTON", 20.0},
		{"HB_HOUSTON", 25.0},
		{"HB_WEST", -10.0},
		{"HB_WEST", 90.0},
		{"HB_NORTH", 30.0},
		{nil, 500.0},
		{"HB_NORTH", "n/a"},
	})
	grouped, err := GroupPrices(tbl, "SettlementPoint", "RTLMP")
	require.NoError(t, err)
	assert.Len(t, grouped["HB_NORTH"], 1)

	ranked := RankBySpread(grouped)
	require.Len(t, ranked, 3)
	assert.Equal(t, "HB_WEST", ranked[0].SettlementPoint)
	assert.Equal(t, "HB_HOUSTON", ranked[1].SettlementPoint)
	assert.Equal(t, "HB_NORTH", ranked[2].SettlementPoint)
	assert.Equal(t, 0.0, ranked[2].Spread)
}

func TestGroupPricesMissingColumn(t *testing.T) {
	_, err := GroupPrices(model.NewTable([]string{"RTLMP"}, nil), "SettlementPoint", "RTLMP")
	assert.ErrorIs(t, err, model.ErrMissingColumn)
}
