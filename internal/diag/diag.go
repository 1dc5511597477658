// Package diag carries non-fatal data-quality events out of the pipeline.
//
// Transforms never print. Every degradation (a table with no recognizable
// timestamp columns, a forecast without a renewable capability column, a
// cross-validation fold that failed to fit) is emitted as an Event to a Sink
// supplied by the caller. Servers log and count them; tests record and assert.
package diag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Kind identifies a class of event.
type Kind string

const (
	UnrecognizedTimestamp  Kind = "unrecognized_timestamp_pattern"
	NullTimestamp          Kind = "null_timestamp"
	MissingRenewableColumn Kind = "missing_renewable_column"
	SplitFitFailed         Kind = "split_fit_failed"
	SkippedParameters      Kind = "skipped_parameters"
	ForecastUnavailable    Kind = "forecast_unavailable"
	DroppedRows            Kind = "dropped_rows"
	DuplicateColumn        Kind = "duplicate_column"
)

// Event is a single warning with structured attributes.
type Event struct {
	Kind      Kind           `json:"kind"`
	Component string         `json:"component"`
	Message   string         `json:"message"`
	Attrs     map[string]any `json:"attrs,omitempty"`
	Time      time.Time      `json:"time"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s [%s]: %s", e.Component, e.Kind, e.Message)
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(Event)
}

// Warn builds an event from slog-style key/value pairs and emits it.
// A nil sink drops the event.
func Warn(s Sink, kind Kind, component, msg string, kv ...any) {
	if s == nil {
		return
	}
	e := Event{Kind: kind, Component: component, Message: msg, Time: time.Now()}
	if len(kv) > 0 {
		e.Attrs = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Attrs[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	s.Emit(e)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Nop discards everything.
var Nop Sink = SinkFunc(func(Event) {})

// Tee fans an event out to every non-nil sink.
func Tee(sinks ...Sink) Sink {
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(e Event) {
		for _, s := range live {
			s.Emit(e)
		}
	})
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Recorder) Has(kind Kind) bool { return r.Count(kind) > 0 }

// LogSink writes events as slog warnings.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Emit(e Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := make([]slog.Attr, 0, len(e.Attrs)+2)
	attrs = append(attrs, slog.String("kind", string(e.Kind)), slog.String("component", e.Component))
	for k, v := range e.Attrs {
		attrs = append(attrs, slog.Any(k, v))
	}
	logger.LogAttrs(context.Background(), slog.LevelWarn, e.Message, attrs...)
}
