package diag

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarnBuildsAttrs(t *testing.T) {
	rec := NewRecorder()
	Warn(rec, DroppedRows, "netload", "rows dropped", "rows", 3, "endpoint", "solar", "dangling")

	events := rec.Events()
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, DroppedRows, e.Kind)
	assert.Equal(t, "netload", e.Component)
	assert.Equal(t, map[string]any{"rows": 3, "endpoint": "solar"}, e.Attrs)
	assert.False(t, e.Time.IsZero())
	assert.Equal(t, "netload [dropped_rows]: rows dropped", e.String())
}

func TestWarnNilSink(t *testing.T) {
	assert.NotPanics(t, func() { Warn(nil, DroppedRows, "x", "y") })
}

func TestTee(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	sink := Tee(a, nil, b)
	Warn(sink, SplitFitFailed, "cv", "fit failed")
	Warn(sink, SkippedParameters, "market", "skipped")

	assert.Equal(t, 1, a.Count(SplitFitFailed))
	assert.Equal(t, 2, len(b.Events()))
	assert.True(t, b.Has(SkippedParameters))
	assert.False(t, b.Has(NullTimestamp))
}

func TestRecorderConcurrent(t *testing.T) {
	rec := NewRecorder()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Warn(rec, ForecastUnavailable, "netload", "missing")
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, rec.Count(ForecastUnavailable))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	Warn(LogSink{Logger: logger}, MissingRenewableColumn, "netload", "no HSL column", "endpoint", "wind")

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "kind=missing_renewable_column")
	assert.Contains(t, out, "endpoint=wind")
}
