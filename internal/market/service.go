// Package market is the entry point for every operation the CLI and the tool
// server expose. A Service owns the endpoint catalog, the report fetcher and
// the diagnostics sink; nothing here is global.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ercot-forecast/internal/catalog"
	"ercot-forecast/internal/data"
	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/forecast"
	"ercot-forecast/internal/model"
	"ercot-forecast/internal/netload"
	"ercot-forecast/internal/normalize"
	"ercot-forecast/internal/vintage"
)

const (
	component  = "market"
	dateLayout = "2006-01-02"

	SolarForecastEndpoint = "solar_system_forecast"
	WindForecastEndpoint  = "wind_system_forecast"
	LoadForecastEndpoint  = "ercot_zone_load_forecast"
	SystemLambdaEndpoint  = "da_system_lambda"
	RealTimePriceEndpoint = "rt_prices"
)

// Fetcher retrieves one report. *data.Client implements it.
type Fetcher interface {
	Get(ctx context.Context, name, rawURL string, params map[string]string) (*data.Response, error)
}

// FetchParams are the request inputs shared by every endpoint. Dates are
// passed through as given; To defaults to From.
type FetchParams struct {
	From            string
	To              string
	SettlementPoint string
	ResourceType    string
	Size            int
	// Extra holds any other query parameters; ones the endpoint does not
	// accept are dropped with a warning.
	Extra map[string]string
}

func (p FetchParams) query() catalog.Query {
	filters := make(map[string]string, len(p.Extra)+2)
	for k, v := range p.Extra {
		filters[k] = v
	}
	if p.SettlementPoint != "" {
		filters["settlementPoint"] = p.SettlementPoint
	}
	if p.ResourceType != "" {
		filters["resourceType"] = p.ResourceType
	}
	return catalog.Query{From: p.From, To: p.To, Size: p.Size, Filters: filters}
}

type Service struct {
	catalog   *catalog.Catalog
	fetcher   Fetcher
	sink      diag.Sink
	logger    *slog.Logger
	now       func() time.Time
	newFitter func(degree int) forecast.Fitter
	pageSize  int
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithDiagnostics sets the sink every warning goes to.
func WithDiagnostics(sink diag.Sink) Option { return func(s *Service) { s.sink = sink } }

// WithClock sets the clock used for default dates.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithPageSize sets the page size used when a request does not give one.
func WithPageSize(n int) Option { return func(s *Service) { s.pageSize = n } }

// WithFitter replaces the polynomial regression.
func WithFitter(fn func(degree int) forecast.Fitter) Option {
	return func(s *Service) { s.newFitter = fn }
}

func New(cat *catalog.Catalog, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		catalog: cat,
		fetcher: fetcher,
		sink:    diag.Nop,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.catalog == nil {
		s.catalog = catalog.Default()
	}
	return s
}

// WithSink returns a copy that reports to sink as well as to the service's
// own sink. Use it to collect the warnings of one request.
func (s *Service) WithSink(sink diag.Sink) *Service {
	cp := *s
	cp.sink = diag.Tee(s.sink, sink)
	return &cp
}

func (s *Service) Catalog() *catalog.Catalog { return s.catalog }

func (s *Service) ListEndpoints(category string) ([]catalog.Endpoint, error) {
	return s.catalog.List(category)
}

func (s *Service) EndpointInfo(name string) (catalog.Endpoint, error) {
	return s.catalog.Lookup(name)
}

// Normalize applies the column and timestamp normalization to a raw table.
func (s *Service) Normalize(t model.Table) (model.Table, error) {
	return normalize.Table(t, s.sink)
}

// FetchRaw fetches a report without normalizing it. Unknown endpoints fail
// before any request is made.
func (s *Service) FetchRaw(ctx context.Context, endpoint string, p FetchParams) (*data.Response, error) {
	ep, err := s.catalog.Lookup(endpoint)
	if err != nil {
		return nil, err
	}
	if p.From == "" {
		return nil, fmt.Errorf("%w: date_from is required", forecast.ErrInvalidArgument)
	}
	if p.Size <= 0 {
		p.Size = s.pageSize
	}
	params, skipped := s.catalog.BuildParams(ep, p.query())
	if len(skipped) > 0 {
		diag.Warn(s.sink, diag.SkippedParameters, component, "parameters not accepted by endpoint were dropped",
			"endpoint", endpoint, "parameters", skipped)
	}
	resp, err := s.fetcher.Get(ctx, endpoint, ep.URL, params)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", endpoint, err)
	}
	if resp.Truncated {
		diag.Warn(s.sink, diag.DroppedRows, component, "pagination stopped at the page limit; later pages were not fetched",
			"endpoint", endpoint, "pages", resp.Pages, "total_pages", resp.Meta.TotalPages)
	}
	return resp, nil
}

// FetchAndNormalize fetches a report and returns it with normalized column
// names and a DATETIME column when the timestamp layout is recognized.
func (s *Service) FetchAndNormalize(ctx context.Context, endpoint string, p FetchParams) (model.Table, error) {
	resp, err := s.FetchRaw(ctx, endpoint, p)
	if err != nil {
		return model.Table{}, err
	}
	t, err := normalize.Table(resp.Table(), s.sink)
	if err != nil {
		return model.Table{}, fmt.Errorf("normalize %s: %w", endpoint, err)
	}
	return t, nil
}

// GetVintageForecast fetches a forecast report for [from, to] and keeps, per
// hour, the latest forecast posted by 07:00 the day before to.
func (s *Service) GetVintageForecast(ctx context.Context, endpoint string, from, to time.Time, p FetchParams) (model.Table, error) {
	if from.IsZero() {
		return model.Table{}, fmt.Errorf("%w: date_from is required", forecast.ErrInvalidArgument)
	}
	if to.IsZero() {
		to = from
	}
	cutoff := vintage.Cutoff(to)
	p.From = from.Format(dateLayout)
	p.To = to.Format(dateLayout)
	extra := make(map[string]string, len(p.Extra)+1)
	for k, v := range p.Extra {
		extra[k] = v
	}
	extra["postedDatetimeTo"] = cutoff.Format(vintage.CutoffLayout)
	p.Extra = extra

	t, err := s.FetchAndNormalize(ctx, endpoint, p)
	if err != nil {
		return model.Table{}, err
	}
	out, err := vintage.Select(t, cutoff, s.sink)
	if err != nil {
		return model.Table{}, fmt.Errorf("vintage %s: %w", endpoint, err)
	}
	return out, nil
}

// GetNetLoadForecast builds hourly net load (load minus solar and wind) from
// the vintage solar, wind and load forecasts. A zero from means tomorrow.
func (s *Service) GetNetLoadForecast(ctx context.Context, from, to time.Time) ([]model.NetLoadRow, error) {
	if from.IsZero() {
		from = normalize.Date(s.now()).AddDate(0, 0, 1)
	}
	if to.IsZero() {
		to = from
	}
	s.logger.Info("net load forecast", "component", component,
		"from", from.Format(dateLayout), "to", to.Format(dateLayout))

	// one report at a time, in join order
	var tables [3]model.Table
	for i, endpoint := range []string{SolarForecastEndpoint, WindForecastEndpoint, LoadForecastEndpoint} {
		t, err := s.GetVintageForecast(ctx, endpoint, from, to, FetchParams{})
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	solar, wind, load := tables[0], tables[1], tables[2]
	return netload.Compose(solar, wind, load, s.sink)
}

// NetLoad implements forecast.Source.
func (s *Service) NetLoad(ctx context.Context, from, to time.Time) ([]model.NetLoadRow, error) {
	return s.GetNetLoadForecast(ctx, from, to)
}

// SystemLambda implements forecast.Source with the day-ahead system lambda.
func (s *Service) SystemLambda(ctx context.Context, from, to time.Time) ([]model.PricePoint, error) {
	t, err := s.FetchAndNormalize(ctx, SystemLambdaEndpoint, FetchParams{
		From: from.Format(dateLayout),
		To:   to.Format(dateLayout),
	})
	if err != nil {
		return nil, err
	}
	if t.Empty() {
		return []model.PricePoint{}, nil
	}
	if err := t.Require(model.DatetimeColumn, model.LambdaColumn); err != nil {
		return nil, fmt.Errorf("%s: %w", SystemLambdaEndpoint, err)
	}
	out := make([]model.PricePoint, 0, t.Len())
	dropped := 0
	for _, row := range t.Rows {
		ts, okT := row.Time(model.DatetimeColumn)
		price, okP := row.Float(model.LambdaColumn)
		if !okT || !okP {
			dropped++
			continue
		}
		out = append(out, model.PricePoint{Datetime: ts, SystemLambda: price})
	}
	if dropped > 0 {
		diag.Warn(s.sink, diag.DroppedRows, component, "system lambda rows without a time or price were dropped", "rows", dropped)
	}
	return out, nil
}

// HourlyRealTimePrices fetches 5-minute settlement point prices and averages
// them to hourly RTLMP per settlement point.
func (s *Service) HourlyRealTimePrices(ctx context.Context, p FetchParams) (model.Table, error) {
	t, err := s.FetchAndNormalize(ctx, RealTimePriceEndpoint, p)
	if err != nil {
		return model.Table{}, err
	}
	if t.Empty() {
		return model.NewTable([]string{model.DatetimeColumn, normalize.SettlementPointColumn, normalize.HourlyPriceColumn}, nil), nil
	}
	return normalize.HourlyAverage(t, s.sink)
}

// CreateRollingSplits splits a table into walk-forward folds by calendar day.
func (s *Service) CreateRollingSplits(t model.Table, initialTrainingDays int, expanding bool) ([]forecast.Split[model.Row], error) {
	return forecast.SplitTable(t, initialTrainingDays, expanding, s.sink)
}

func (s *Service) runner() *forecast.Runner {
	return &forecast.Runner{
		Source:    s,
		NewFitter: s.newFitter,
		Sink:      s.sink,
		Logger:    s.logger,
		Now:       s.now,
	}
}

func (s *Service) DayAheadForecast(ctx context.Context, p forecast.DayAheadParams) (*forecast.DayAheadResult, error) {
	return s.runner().DayAhead(ctx, p)
}

func (s *Service) RollingForecastCV(ctx context.Context, p forecast.CVParams) (*forecast.CVResult, error) {
	return s.runner().RollingCV(ctx, p)
}
