package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/guregu/null/v6"

	"ercot-forecast/internal/analysis"
	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/metrics"
	"ercot-forecast/internal/model"
	"ercot-forecast/internal/normalize"
)

const (
	DefaultTrainingDays     = 15
	DefaultPolynomialDegree = 3
	DefaultCVLookbackDays   = 30
	dateLayout              = "2006-01-02"
)

// Source supplies the two series the price model is trained on. Both ranges
// are inclusive calendar days.
type Source interface {
	NetLoad(ctx context.Context, from, to time.Time) ([]model.NetLoadRow, error)
	SystemLambda(ctx context.Context, from, to time.Time) ([]model.PricePoint, error)
}

// Runner drives the day-ahead forecast and the rolling cross-validation.
type Runner struct {
	Source Source
	// NewFitter returns the regression for a polynomial degree.
	// Nil uses PolynomialFitter.
	NewFitter func(degree int) Fitter
	Sink      diag.Sink
	Logger    *slog.Logger
	// Now anchors default dates. Nil uses time.Now.
	Now func() time.Time
}

func (r *Runner) fitter(degree int) Fitter {
	if r.NewFitter != nil {
		return r.NewFitter(degree)
	}
	return PolynomialFitter{Degree: degree}
}

func (r *Runner) today() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return normalize.Date(now())
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Observation is one hour with both net load and an actual price.
type Observation struct {
	Datetime     time.Time `json:"DATETIME"`
	NetLoad      float64   `json:"NetLoad"`
	SystemLambda float64   `json:"SystemLambda"`
}

// Join pairs net load and price by hour. Hours without a net load value are
// dropped with a warning.
func Join(load []model.NetLoadRow, prices []model.PricePoint, sink diag.Sink) []Observation {
	lambda := make(map[int64]float64, len(prices))
	for _, p := range prices {
		if _, seen := lambda[p.Datetime.UnixNano()]; !seen {
			lambda[p.Datetime.UnixNano()] = p.SystemLambda
		}
	}
	out := make([]Observation, 0, len(load))
	missing := 0
	for _, row := range load {
		price, ok := lambda[row.Datetime.UnixNano()]
		if !ok {
			continue
		}
		if !row.NetLoad.Valid {
			missing++
			continue
		}
		out = append(out, Observation{Datetime: row.Datetime, NetLoad: row.NetLoad.Float64, SystemLambda: price})
	}
	if missing > 0 {
		diag.Warn(sink, diag.DroppedRows, component, "hours without net load left out of training", "rows", missing)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Datetime.Before(out[j].Datetime) })
	return out
}

func columns(obs []Observation) (x, y []float64) {
	x = make([]float64, len(obs))
	y = make([]float64, len(obs))
	for i, o := range obs {
		x[i] = o.NetLoad
		y[i] = o.SystemLambda
	}
	return x, y
}

// DayAheadParams configures DayAhead. Zero values take the defaults:
// tomorrow, 15 training days, degree 3.
type DayAheadParams struct {
	ForecastDate     time.Time
	TrainingDays     int
	PolynomialDegree int
}

// ForecastRow is one predicted hour of the target day.
type ForecastRow struct {
	model.NetLoadRow
	PredictedLambda null.Float `json:"PredictedLambda"`
	Date            string     `json:"Date"`
}

type DayAheadParameters struct {
	ForecastDate     string `json:"forecast_date"`
	TrainingDays     int    `json:"training_days"`
	TrainingStart    string `json:"training_start"`
	TrainingEnd      string `json:"training_end"`
	PolynomialDegree int    `json:"polynomial_degree"`
}

type DayAheadResult struct {
	Forecast            []ForecastRow      `json:"forecast"`
	Model               Model              `json:"model"`
	TrainingPerformance Metrics            `json:"training_performance"`
	TrainingHours       int                `json:"training_hours"`
	PriceSummary        *analysis.Summary  `json:"price_summary,omitempty"`
	Parameters          DayAheadParameters `json:"parameters"`
}

// DayAhead trains on the TrainingDays days before the target date and
// predicts the target day's system lambda from its net load forecast. If the
// target day's net load cannot be fetched the trained model and its training
// metrics are still returned, with an empty forecast.
func (r *Runner) DayAhead(ctx context.Context, p DayAheadParams) (*DayAheadResult, error) {
	if p.ForecastDate.IsZero() {
		p.ForecastDate = r.today().AddDate(0, 0, 1)
	}
	p.ForecastDate = normalize.Date(p.ForecastDate)
	if p.TrainingDays == 0 {
		p.TrainingDays = DefaultTrainingDays
	}
	if p.PolynomialDegree == 0 {
		p.PolynomialDegree = DefaultPolynomialDegree
	}
	if p.TrainingDays < 1 {
		return nil, fmt.Errorf("%w: training days must be at least 1, got %d", ErrInvalidArgument, p.TrainingDays)
	}
	if p.PolynomialDegree < 1 {
		return nil, fmt.Errorf("%w: polynomial degree must be at least 1, got %d", ErrInvalidArgument, p.PolynomialDegree)
	}

	trainEnd := p.ForecastDate.AddDate(0, 0, -1)
	trainStart := trainEnd.AddDate(0, 0, -(p.TrainingDays - 1))
	log := r.logger().With("component", component, "forecast_date", p.ForecastDate.Format(dateLayout))
	log.Info("day-ahead forecast",
		"training_start", trainStart.Format(dateLayout),
		"training_end", trainEnd.Format(dateLayout),
		"degree", p.PolynomialDegree)

	load, err := r.Source.NetLoad(ctx, trainStart, trainEnd)
	if err != nil {
		return nil, fmt.Errorf("training net load: %w", err)
	}
	prices, err := r.Source.SystemLambda(ctx, trainStart, trainEnd)
	if err != nil {
		return nil, fmt.Errorf("training system lambda: %w", err)
	}
	obs := Join(load, prices, r.Sink)
	if len(obs) == 0 {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoTrainingData, trainStart.Format(dateLayout), trainEnd.Format(dateLayout))
	}

	x, y := columns(obs)
	fitted, err := r.fitter(p.PolynomialDegree).Fit(x, y)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	yhat, err := fitted.Predict(x)
	if err != nil {
		return nil, fmt.Errorf("predict training set: %w", err)
	}
	perf, err := Evaluate(y, yhat)
	if err != nil {
		return nil, err
	}
	log.Info("trained", "hours", len(obs), "mae", perf.MAE, "rmse", perf.RMSE, "r_squared", perf.RSquared)

	res := &DayAheadResult{
		Forecast:            []ForecastRow{},
		Model:               fitted,
		TrainingPerformance: perf,
		TrainingHours:       len(obs),
		Parameters: DayAheadParameters{
			ForecastDate:     p.ForecastDate.Format(dateLayout),
			TrainingDays:     p.TrainingDays,
			TrainingStart:    trainStart.Format(dateLayout),
			TrainingEnd:      trainEnd.Format(dateLayout),
			PolynomialDegree: p.PolynomialDegree,
		},
	}

	rows, err := r.predictDay(ctx, fitted, p.ForecastDate)
	if err != nil {
		diag.Warn(r.Sink, diag.ForecastUnavailable, component,
			"forecast day could not be produced; returning training results only",
			"forecast_date", res.Parameters.ForecastDate, "error", err.Error())
		return res, nil
	}
	res.Forecast = rows
	predicted := make([]float64, 0, len(rows))
	for _, row := range rows {
		if row.PredictedLambda.Valid {
			predicted = append(predicted, row.PredictedLambda.Float64)
		}
	}
	if len(predicted) > 0 {
		s := analysis.Summarize(predicted)
		res.PriceSummary = &s
		log.Info("forecast generated", "hours", len(rows), "mean_price", s.Mean, "min_price", s.Min, "max_price", s.Max)
	}
	return res, nil
}

func (r *Runner) predictDay(ctx context.Context, fitted Model, day time.Time) ([]ForecastRow, error) {
	load, err := r.Source.NetLoad(ctx, day, day)
	if err != nil {
		return nil, err
	}
	x := make([]float64, 0, len(load))
	for _, row := range load {
		if row.NetLoad.Valid {
			x = append(x, row.NetLoad.Float64)
		}
	}
	yhat, err := fitted.Predict(x)
	if err != nil {
		return nil, err
	}
	out := make([]ForecastRow, len(load))
	j := 0
	for i, row := range load {
		out[i] = ForecastRow{NetLoadRow: row, Date: day.Format(dateLayout)}
		if row.NetLoad.Valid {
			out[i].PredictedLambda = null.FloatFrom(yhat[j])
			j++
		}
	}
	return out, nil
}

func observeSplit(ok bool) {
	if ok {
		metrics.ObserveSplitFit("success")
		return
	}
	metrics.ObserveSplitFit("error")
}
