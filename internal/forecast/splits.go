package forecast

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
	"ercot-forecast/internal/normalize"
)

const component = "forecast"

// Split is one walk-forward fold: train on days before TestDate, test on TestDate.
type Split[T any] struct {
	Train    []T
	Test     []T
	TestDate time.Time
	// TrainStart and TrainEnd are the first and last calendar days in Train.
	TrainStart time.Time
	TrainEnd   time.Time
}

// MakeSplits builds walk-forward folds over the calendar days of rows. The
// first initialTrainingDays days only train. With expanding set every fold
// trains on all earlier days; otherwise on the initialTrainingDays days right
// before the test day.
func MakeSplits[T any](rows []T, dateOf func(T) time.Time, initialTrainingDays int, expanding bool) ([]Split[T], error) {
	if initialTrainingDays < 1 {
		return nil, fmt.Errorf("%w: initial training days must be at least 1, got %d", ErrInvalidArgument, initialTrainingDays)
	}
	byDay := make(map[time.Time][]T)
	for _, r := range rows {
		d := normalize.Date(dateOf(r))
		byDay[d] = append(byDay[d], r)
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	if len(days) <= initialTrainingDays {
		return nil, &InsufficientDataError{Required: initialTrainingDays, Available: len(days)}
	}

	splits := make([]Split[T], 0, len(days)-initialTrainingDays)
	for i := initialTrainingDays; i < len(days); i++ {
		start := 0
		if !expanding {
			start = max(0, i-initialTrainingDays)
		}
		var train []T
		for _, d := range days[start:i] {
			train = append(train, byDay[d]...)
		}
		test := byDay[days[i]]
		if len(train) == 0 || len(test) == 0 {
			continue
		}
		splits = append(splits, Split[T]{
			Train:      train,
			Test:       test,
			TestDate:   days[i],
			TrainStart: days[start],
			TrainEnd:   days[i-1],
		})
	}
	return splits, nil
}

// SplitTable splits a table by its Date column, or by the calendar day of
// DATETIME when Date is absent. Rows with no usable date are left out.
func SplitTable(t model.Table, initialTrainingDays int, expanding bool, sink diag.Sink) ([]Split[model.Row], error) {
	col := model.DateColumn
	if !t.HasColumn(col) {
		col = model.DatetimeColumn
	}
	if err := t.Require(col); err != nil {
		return nil, err
	}
	type dated struct {
		row model.Row
		day time.Time
	}
	rows := make([]dated, 0, len(t.Rows))
	skipped := 0
	for i, r := range t.Rows {
		d, err := normalize.ParseTimestamp(r[col])
		if errors.Is(err, normalize.ErrNull) {
			skipped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows = append(rows, dated{row: r, day: d})
	}
	if skipped > 0 {
		diag.Warn(sink, diag.DroppedRows, component, "rows without a date left out of splits", "rows", skipped, "column", col)
	}

	folds, err := MakeSplits(rows, func(d dated) time.Time { return d.day }, initialTrainingDays, expanding)
	if err != nil {
		return nil, err
	}
	unwrap := func(in []dated) []model.Row {
		out := make([]model.Row, len(in))
		for i, d := range in {
			out[i] = d.row
		}
		return out
	}
	out := make([]Split[model.Row], len(folds))
	for i, f := range folds {
		out[i] = Split[model.Row]{
			Train:      unwrap(f.Train),
			Test:       unwrap(f.Test),
			TestDate:   f.TestDate,
			TrainStart: f.TrainStart,
			TrainEnd:   f.TrainEnd,
		}
	}
	return out, nil
}
