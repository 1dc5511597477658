package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/model"
)

var (
	// ErrNull marks a timestamp component with no value.
	ErrNull             = errors.New("null value")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidHour      = errors.New("invalid hour")
)

// Pattern identifies which columns encode a row's timestamp.
type Pattern int

const (
	PatternNone Pattern = iota
	PatternDeliveryInterval
	PatternIntervalEnding
	PatternOperatingDay
	PatternOperatingDate
	PatternDeliveryHour
	PatternDeliveryHourEnding
	PatternSCED
)

func (p Pattern) String() string {
	switch p {
	case PatternDeliveryInterval:
		return "DeliveryDate+DeliveryHour+DeliveryInterval"
	case PatternIntervalEnding:
		return "IntervalEnding"
	case PatternOperatingDay:
		return "OperatingDay+HourEnding"
	case PatternOperatingDate:
		return "OperatingDate+HourEnding"
	case PatternDeliveryHour:
		return "DeliveryDate+DeliveryHour"
	case PatternDeliveryHourEnding:
		return "DeliveryDate+HourEnding"
	case PatternSCED:
		return "SCEDTimestamp"
	}
	return "none"
}

// Column tokens that carry timestamp components, after ColumnName.
const (
	colDeliveryDate     = "DeliveryDate"
	colDeliveryHour     = "DeliveryHour"
	colDeliveryInterval = "DeliveryInterval"
	colIntervalEnding   = "IntervalEnding"
	colOperatingDay     = "OperatingDay"
	colOperatingDate    = "OperatingDate"
	colHourEnding       = "HourEnding"
	colSCEDTimestamp    = "SCEDTimestamp"
	colSCEDTimeStamp    = "SCEDTimeStamp"
)

type rule struct {
	pattern  Pattern
	requires []string
	resolve  func(model.Row) (time.Time, error)
}

// rules is evaluated top to bottom; the first rule whose columns are all
// present decides the encoding for the whole table.
var rules = []rule{
	{PatternDeliveryInterval, []string{colDeliveryDate, colDeliveryHour, colDeliveryInterval}, resolveDeliveryInterval},
	{PatternIntervalEnding, []string{colIntervalEnding}, direct(colIntervalEnding)},
	{PatternOperatingDay, []string{colOperatingDay, colHourEnding}, hourEnding(colOperatingDay)},
	{PatternOperatingDate, []string{colOperatingDate, colHourEnding}, hourEnding(colOperatingDate)},
	{PatternDeliveryHour, []string{colDeliveryDate, colDeliveryHour}, resolveDeliveryHour},
	{PatternDeliveryHourEnding, []string{colDeliveryDate, colHourEnding}, hourEnding(colDeliveryDate)},
	{PatternSCED, []string{colSCEDTimestamp}, direct(colSCEDTimestamp)},
	{PatternSCED, []string{colSCEDTimeStamp}, direct(colSCEDTimeStamp)},
}

func match(has func(string) bool) *rule {
	for i := range rules {
		ok := true
		for _, c := range rules[i].requires {
			if !has(c) {
				ok = false
				break
			}
		}
		if ok {
			return &rules[i]
		}
	}
	return nil
}

// DetectPattern reports which encoding a set of normalized column names uses.
func DetectPattern(columns []string) Pattern {
	set := make(map[string]bool, len(columns))
	for _, c := range columns {
		set[c] = true
	}
	if r := match(func(c string) bool { return set[c] }); r != nil {
		return r.pattern
	}
	return PatternNone
}

// ResolveRow derives the timestamp of a single row from the keys it carries.
func ResolveRow(row model.Row) (time.Time, Pattern, error) {
	r := match(func(c string) bool { _, ok := row[c]; return ok })
	if r == nil {
		return time.Time{}, PatternNone, fmt.Errorf("%w: no timestamp columns", ErrInvalidTimestamp)
	}
	ts, err := r.resolve(row)
	return ts, r.pattern, err
}

// AddDatetime adds the canonical DATETIME column. Rows with a null component
// get a nil DATETIME; an unparseable component is an error. A table with no
// recognizable encoding is returned unchanged after an
// unrecognized_timestamp_pattern event.
func AddDatetime(t model.Table, sink diag.Sink) (model.Table, error) {
	out := t.Clone()
	r := match(out.HasColumn)
	if r == nil {
		if out.HasColumn(model.DatetimeColumn) {
			return coerceDatetime(out, sink)
		}
		diag.Warn(sink, diag.UnrecognizedTimestamp, component,
			"no datetime columns found; DATETIME not added",
			"columns", append([]string(nil), out.Columns...))
		return out, nil
	}
	out.AddColumn(model.DatetimeColumn)
	nulls := 0
	for i, row := range out.Rows {
		ts, err := r.resolve(row)
		switch {
		case errors.Is(err, ErrNull):
			row[model.DatetimeColumn] = nil
			nulls++
		case err != nil:
			return model.Table{}, fmt.Errorf("row %d (%s): %w", i, r.pattern, err)
		default:
			row[model.DatetimeColumn] = ts
		}
	}
	if nulls > 0 {
		diag.Warn(sink, diag.NullTimestamp, component,
			"rows with null timestamp components have no DATETIME",
			"rows", nulls, "pattern", r.pattern.String())
	}
	return out, nil
}

// coerceDatetime parses an existing DATETIME column, as found in tables that
// were normalized before and serialized.
func coerceDatetime(t model.Table, sink diag.Sink) (model.Table, error) {
	nulls := 0
	for i, row := range t.Rows {
		ts, err := ParseTimestamp(row[model.DatetimeColumn])
		switch {
		case errors.Is(err, ErrNull):
			row[model.DatetimeColumn] = nil
			nulls++
		case err != nil:
			return model.Table{}, fmt.Errorf("row %d (%s): %w", i, model.DatetimeColumn, err)
		default:
			row[model.DatetimeColumn] = ts
		}
	}
	if nulls > 0 {
		diag.Warn(sink, diag.NullTimestamp, component, "rows with null DATETIME", "rows", nulls)
	}
	return t, nil
}

// ResolveHourEnding converts an hour-ending label to the start of that hour:
// hour ending 1 is 00:00, "24:00" is 23:00 on the same day.
func ResolveHourEnding(base time.Time, hourEnding any) (time.Time, error) {
	h, err := wholeNumber(hourEnding)
	if err != nil {
		return time.Time{}, err
	}
	if h < 1 || h > 24 {
		return time.Time{}, fmt.Errorf("%w: hour ending %d outside 1..24", ErrInvalidHour, h)
	}
	return base.Add(time.Duration(h-1) * time.Hour), nil
}

func hourEnding(dateCol string) func(model.Row) (time.Time, error) {
	return func(row model.Row) (time.Time, error) {
		base, err := timeField(row, dateCol)
		if err != nil {
			return time.Time{}, err
		}
		if model.IsNull(row[colHourEnding]) {
			return time.Time{}, ErrNull
		}
		ts, err := ResolveHourEnding(base, row[colHourEnding])
		if err != nil {
			return time.Time{}, fmt.Errorf("%s: %w", colHourEnding, err)
		}
		return ts, nil
	}
}

func direct(col string) func(model.Row) (time.Time, error) {
	return func(row model.Row) (time.Time, error) {
		return timeField(row, col)
	}
}

func resolveDeliveryHour(row model.Row) (time.Time, error) {
	base, err := timeField(row, colDeliveryDate)
	if err != nil {
		return time.Time{}, err
	}
	h, err := hourField(row, colDeliveryHour, maxDeliveryHour)
	if err != nil {
		return time.Time{}, err
	}
	return base.Add(time.Duration(h) * time.Hour), nil
}

func resolveDeliveryInterval(row model.Row) (time.Time, error) {
	ts, err := resolveDeliveryHour(row)
	if err != nil {
		return time.Time{}, err
	}
	n, err := hourField(row, colDeliveryInterval, maxDeliveryInterval)
	if err != nil {
		return time.Time{}, err
	}
	return ts.Add(time.Duration(n*5) * time.Minute), nil
}

func timeField(row model.Row, col string) (time.Time, error) {
	ts, err := ParseTimestamp(row[col])
	if err != nil && !errors.Is(err, ErrNull) {
		return time.Time{}, fmt.Errorf("%s: %w", col, err)
	}
	return ts, err
}

// Upper bounds for the hour and 5-minute interval indexes of a delivery date.
const (
	maxDeliveryHour     = 24
	maxDeliveryInterval = 12
)

func hourField(row model.Row, col string, limit int) (int, error) {
	n, err := wholeNumber(row[col])
	if err != nil {
		if errors.Is(err, ErrNull) {
			return 0, err
		}
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	if n < 0 || n > limit {
		return 0, fmt.Errorf("%s: %w: %d outside 0..%d", col, ErrInvalidHour, n, limit)
	}
	return n, nil
}

// wholeNumber reads an integer cell. Strings such as "13:00" use the part before the colon.
func wholeNumber(v any) (int, error) {
	if model.IsNull(v) {
		return 0, ErrNull
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if i := strings.IndexByte(s, ':'); i >= 0 {
			s = s[:i]
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidHour, v)
		}
		return n, nil
	}
	f, ok := model.Float(v)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHour, v)
	}
	return int(f), nil
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseTimestamp reads a date or timestamp cell. Zone offsets are dropped and
// the wall clock is kept, so every result is in UTC with ERCOT local time.
func ParseTimestamp(v any) (time.Time, error) {
	if model.IsNull(v) {
		return time.Time{}, ErrNull
	}
	switch x := v.(type) {
	case time.Time:
		return wallClock(x), nil
	case string:
		s := strings.TrimSpace(x)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return wallClock(t), nil
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, x)
	}
	return time.Time{}, fmt.Errorf("%w: unsupported value %v (%T)", ErrInvalidTimestamp, v, v)
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Date truncates a timestamp to its calendar day.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
