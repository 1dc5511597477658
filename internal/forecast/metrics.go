package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics scores predictions against actual prices in $/MWh.
type Metrics struct {
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
	RSquared float64 `json:"r_squared"`
}

// Evaluate computes MAE, RMSE and the coefficient of determination. When the
// actuals are constant R² is 1 for a perfect fit and 0 otherwise.
func Evaluate(actual, predicted []float64) (Metrics, error) {
	n := len(actual)
	if n != len(predicted) {
		return Metrics{}, fmt.Errorf("%w: %d actuals but %d predictions", ErrInvalidArgument, n, len(predicted))
	}
	if n == 0 {
		return Metrics{}, fmt.Errorf("%w: no observations", ErrInvalidArgument)
	}
	m := Metrics{
		MAE:  floats.Distance(actual, predicted, 1) / float64(n),
		RMSE: floats.Distance(actual, predicted, 2) / math.Sqrt(float64(n)),
	}
	if stat.Variance(actual, nil) == 0 || n == 1 {
		if m.MAE == 0 {
			m.RSquared = 1
		}
		return m, nil
	}
	m.RSquared = stat.RSquaredFrom(predicted, actual, nil)
	return m, nil
}
