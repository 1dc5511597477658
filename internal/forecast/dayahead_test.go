package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/logging"
	"ercot-forecast/internal/model"
)

// fakeSource serves hourly net load 30000+100h and a price of 0.002*net load
// for every requested day; days listed in missing have no net load.
type fakeSource struct {
	missing map[string]bool
	noPrice bool
	loadErr error
	calls   int
}

func (f *fakeSource) NetLoad(_ context.Context, from, to time.Time) ([]model.NetLoadRow, error) {
	f.calls++
	if f.loadErr != nil && from.Equal(to) {
		return nil, f.loadErr
	}
	var out []model.NetLoadRow
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for h := 0; h < 24; h++ {
			row := model.NetLoadRow{Datetime: d.Add(time.Duration(h) * time.Hour)}
			if !f.missing[d.Format(dateLayout)] {
				row.NetLoad = null.FloatFrom(30000 + 100*float64(h))
			}
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeSource) SystemLambda(_ context.Context, from, to time.Time) ([]model.PricePoint, error) {
	if f.noPrice {
		return nil, nil
	}
	var out []model.PricePoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for h := 0; h < 24; h++ {
			out = append(out, model.PricePoint{
				Datetime:     d.Add(time.Duration(h) * time.Hour),
				SystemLambda: 0.002 * (30000 + 100*float64(h)),
			})
		}
	}
	return out, nil
}

func testRunner(src Source, rec *diag.Recorder) *Runner {
	return &Runner{
		Source: src,
		Sink:   rec,
		Logger: logging.Discard(),
		Now:    func() time.Time { return time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC) },
	}
}

func TestJoin(t *testing.T) {
	at := func(h int) time.Time { return feb1.Add(time.Duration(h) * time.Hour) }
	load := []model.NetLoadRow{
		{Datetime: at(2), NetLoad: null.FloatFrom(300)},
		{Datetime: at(0), NetLoad: null.FloatFrom(100)},
		{Datetime: at(1)},
		{Datetime: at(3), NetLoad: null.FloatFrom(400)},
	}
	prices := []model.PricePoint{
		{Datetime: at(0), SystemLambda: 10},
		{Datetime: at(1), SystemLambda: 11},
		{Datetime: at(2), SystemLambda: 12},
	}
	rec := diag.NewRecorder()

	got := Join(load, prices, rec)
	assert.Equal(t, []Observation{
		{Datetime: at(0), NetLoad: 100, SystemLambda: 10},
		{Datetime: at(2), NetLoad: 300, SystemLambda: 12},
	}, got)
	assert.Equal(t, 1, rec.Count(diag.DroppedRows))
}

func TestDayAheadDefaults(t *testing.T) {
	rec := diag.NewRecorder()
	res, err := testRunner(&fakeSource{}, rec).DayAhead(context.Background(), DayAheadParams{})
	require.NoError(t, err)

	assert.Equal(t, DayAheadParameters{
		ForecastDate:     "2024-03-02",
		TrainingDays:     DefaultTrainingDays,
		TrainingStart:    "2024-02-16",
		TrainingEnd:      "2024-03-01",
		PolynomialDegree: DefaultPolynomialDegree,
	}, res.Parameters)
	assert.Equal(t, 24*DefaultTrainingDays, res.TrainingHours)
	assert.InDelta(t, 1.0, res.TrainingPerformance.RSquared, 1e-9)

	require.Len(t, res.Forecast, 24)
	for h, row := range res.Forecast {
		assert.InDelta(t, 0.002*(30000+100*float64(h)), row.PredictedLambda.Float64, 1e-6)
		assert.Equal(t, "2024-03-02", row.Date)
	}
	require.NotNil(t, res.PriceSummary)
	assert.InDelta(t, 60.0, res.PriceSummary.Min, 1e-6)
	assert.Empty(t, rec.Events())
}

func TestDayAheadRejectsBadArguments(t *testing.T) {
	r := testRunner(&fakeSource{}, diag.NewRecorder())
	_, err := r.DayAhead(context.Background(), DayAheadParams{TrainingDays: -1})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.DayAhead(context.Background(), DayAheadParams{PolynomialDegree: -2})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDayAheadNoTrainingData(t *testing.T) {
	_, err := testRunner(&fakeSource{noPrice: true}, diag.NewRecorder()).DayAhead(context.Background(), DayAheadParams{})
	assert.ErrorIs(t, err, ErrNoTrainingData)
}

func TestDayAheadTargetDayUnavailable(t *testing.T) {
	rec := diag.NewRecorder()
	src := &fakeSource{loadErr: errors.New("not published")}
	res, err := testRunner(src, rec).DayAhead(context.Background(), DayAheadParams{TrainingDays: 2, PolynomialDegree: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Forecast)
	assert.Nil(t, res.PriceSummary)
	assert.Equal(t, 48, res.TrainingHours)
	assert.Equal(t, 1, rec.Count(diag.ForecastUnavailable))
}

func TestDayAheadKeepsHoursWithoutNetLoad(t *testing.T) {
	src := &fakeSource{missing: map[string]bool{"2024-03-02": true}}
	res, err := testRunner(src, diag.NewRecorder()).DayAhead(context.Background(), DayAheadParams{TrainingDays: 2, PolynomialDegree: 1})
	require.NoError(t, err)
	require.Len(t, res.Forecast, 24)
	for _, row := range res.Forecast {
		assert.False(t, row.PredictedLambda.Valid)
	}
	assert.Nil(t, res.PriceSummary)
}
