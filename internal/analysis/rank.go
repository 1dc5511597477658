package analysis

import (
	"sort"

	"ercot-forecast/internal/model"
)

type RankedSummary struct {
	SettlementPoint string `json:"settlement_point"`
	Summary
}

// RankBySpread summarizes each settlement point's prices and sorts by
// descending P95-P05 spread, then by name.
func RankBySpread(byPoint map[string][]float64) []RankedSummary {
	out := make([]RankedSummary, 0, len(byPoint))
	for point, prices := range byPoint {
		out = append(out, RankedSummary{SettlementPoint: point, Summary: Summarize(prices)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spread != out[j].Spread {
			return out[i].Spread > out[j].Spread
		}
		return out[i].SettlementPoint < out[j].SettlementPoint
	})
	return out
}

// GroupPrices collects the numeric values of priceCol per pointCol value.
// Rows missing either are skipped.
func GroupPrices(t model.Table, pointCol, priceCol string) (map[string][]float64, error) {
	if err := t.Require(pointCol, priceCol); err != nil {
		return nil, err
	}
	out := make(map[string][]float64)
	for _, r := range t.Rows {
		point, ok := r[pointCol].(string)
		if !ok || point == "" {
			continue
		}
		price, ok := r.Float(priceCol)
		if !ok {
			continue
		}
		out[point] = append(out[point], price)
	}
	return out, nil
}
