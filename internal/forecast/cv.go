package forecast

import (
	"context"
	"fmt"
	"time"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/normalize"
)

// CVParams configures RollingCV. Zero dates default to the 30 days ending
// yesterday; zero counts take the day-ahead defaults.
type CVParams struct {
	Start               time.Time
	End                 time.Time
	InitialTrainingDays int
	PolynomialDegree    int
	// FixedWindow trains each fold on only the InitialTrainingDays days
	// before it instead of on all earlier days.
	FixedWindow bool
}

type Prediction struct {
	Observation
	Date            string  `json:"Date"`
	PredictedLambda float64 `json:"PredictedLambda"`
}

type DailyMetric struct {
	Date string `json:"date"`
	Metrics
	Hours int `json:"hours"`
}

type OverallMetrics struct {
	Metrics
	TotalHours   int `json:"total_hours"`
	ForecastDays int `json:"forecast_days"`
}

type CVParameters struct {
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date"`
	InitialTrainingDays int    `json:"initial_training_days"`
	PolynomialDegree    int    `json:"polynomial_degree"`
	ExpandingWindow     bool   `json:"expanding_window"`
	Splits              int    `json:"splits"`
	FailedSplits        int    `json:"failed_splits"`
}

type CVResult struct {
	Predictions        []Prediction   `json:"predictions"`
	DailyMetrics       []DailyMetric  `json:"daily_metrics"`
	OverallPerformance OverallMetrics `json:"overall_performance"`
	Parameters         CVParameters   `json:"parameters"`
}

// RollingCV fetches net load and system lambda over [Start, End], splits the
// joined hours by day and scores a fresh fit on each test day. A fold whose
// fit or prediction fails is reported and skipped.
func (r *Runner) RollingCV(ctx context.Context, p CVParams) (*CVResult, error) {
	today := r.today()
	if p.Start.IsZero() {
		p.Start = today.AddDate(0, 0, -DefaultCVLookbackDays)
	}
	if p.End.IsZero() {
		p.End = today.AddDate(0, 0, -1)
	}
	p.Start, p.End = normalize.Date(p.Start), normalize.Date(p.End)
	if p.InitialTrainingDays == 0 {
		p.InitialTrainingDays = DefaultTrainingDays
	}
	if p.PolynomialDegree == 0 {
		p.PolynomialDegree = DefaultPolynomialDegree
	}
	if p.End.Before(p.Start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidArgument, p.End.Format(dateLayout), p.Start.Format(dateLayout))
	}
	if p.PolynomialDegree < 1 {
		return nil, fmt.Errorf("%w: polynomial degree must be at least 1, got %d", ErrInvalidArgument, p.PolynomialDegree)
	}

	log := r.logger().With("component", component)
	log.Info("rolling cross-validation",
		"start", p.Start.Format(dateLayout),
		"end", p.End.Format(dateLayout),
		"initial_training_days", p.InitialTrainingDays,
		"expanding", !p.FixedWindow)

	load, err := r.Source.NetLoad(ctx, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("net load: %w", err)
	}
	prices, err := r.Source.SystemLambda(ctx, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("system lambda: %w", err)
	}
	obs := Join(load, prices, r.Sink)

	splits, err := MakeSplits(obs, func(o Observation) time.Time { return o.Datetime }, p.InitialTrainingDays, !p.FixedWindow)
	if err != nil {
		return nil, err
	}

	res := &CVResult{
		Predictions:  []Prediction{},
		DailyMetrics: []DailyMetric{},
		Parameters: CVParameters{
			StartDate:           p.Start.Format(dateLayout),
			EndDate:             p.End.Format(dateLayout),
			InitialTrainingDays: p.InitialTrainingDays,
			PolynomialDegree:    p.PolynomialDegree,
			ExpandingWindow:     !p.FixedWindow,
			Splits:              len(splits),
		},
	}
	var actual, predicted []float64
	for _, s := range splits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		day := s.TestDate.Format(dateLayout)
		preds, m, err := r.scoreSplit(s, p.PolynomialDegree)
		observeSplit(err == nil)
		if err != nil {
			res.Parameters.FailedSplits++
			diag.Warn(r.Sink, diag.SplitFitFailed, component, "split skipped", "date", day, "error", err.Error())
			continue
		}
		for i, o := range s.Test {
			res.Predictions = append(res.Predictions, Prediction{Observation: o, Date: day, PredictedLambda: preds[i]})
			actual = append(actual, o.SystemLambda)
		}
		predicted = append(predicted, preds...)
		res.DailyMetrics = append(res.DailyMetrics, DailyMetric{Date: day, Metrics: m, Hours: len(s.Test)})
	}
	if len(res.DailyMetrics) == 0 {
		return nil, fmt.Errorf("%w: %d attempted", ErrNoSuccessfulSplits, len(splits))
	}

	overall, err := Evaluate(actual, predicted)
	if err != nil {
		return nil, err
	}
	res.OverallPerformance = OverallMetrics{Metrics: overall, TotalHours: len(actual), ForecastDays: len(res.DailyMetrics)}
	log.Info("cross-validation complete",
		"forecast_days", len(res.DailyMetrics),
		"failed_splits", res.Parameters.FailedSplits,
		"mae", overall.MAE, "rmse", overall.RMSE, "r_squared", overall.RSquared)
	return res, nil
}

func (r *Runner) scoreSplit(s Split[Observation], degree int) ([]float64, Metrics, error) {
	x, y := columns(s.Train)
	fitted, err := r.fitter(degree).Fit(x, y)
	if err != nil {
		return nil, Metrics{}, err
	}
	tx, ty := columns(s.Test)
	preds, err := fitted.Predict(tx)
	if err != nil {
		return nil, Metrics{}, err
	}
	m, err := Evaluate(ty, preds)
	if err != nil {
		return nil, Metrics{}, err
	}
	return preds, m, nil
}
