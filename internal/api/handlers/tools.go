package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"ercot-forecast/internal/api/models"
	"ercot-forecast/internal/catalog"
	"ercot-forecast/internal/data"
	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/forecast"
	"ercot-forecast/internal/market"
	"ercot-forecast/internal/metrics"
	"ercot-forecast/internal/model"
)

const (
	dateLayout = "2006-01-02"

	// predictionSampleSize bounds the predictions returned by the
	// cross-validation tool; daily and overall metrics cover all of them.
	predictionSampleSize = 100
)

type toolFunc func(c *gin.Context, svc *market.Service) (message string, result any, err error)

type tool struct {
	info models.ToolInfo
	run  toolFunc
}

// ToolHandler serves the tool list and dispatches tool calls.
type ToolHandler struct {
	service *market.Service
	maxRows int
	logger  *slog.Logger
	tools   map[string]tool
	order   []string
}

// NewToolHandler creates a tool handler. Tables in results are cut to
// maxRows rows.
func NewToolHandler(svc *market.Service, maxRows int, logger *slog.Logger) *ToolHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &ToolHandler{
		service: svc,
		maxRows: maxRows,
		logger:  logger.With("component", "tools"),
		tools:   make(map[string]tool),
	}
	h.register(fetchTool, h.fetch)
	h.register(listEndpointsTool, h.listEndpoints)
	h.register(normalizeTool, h.normalize)
	h.register(endpointInfoTool, h.endpointInfo)
	h.register(vintageTool, h.vintage)
	h.register(netLoadTool, h.netLoad)
	h.register(splitsTool, h.splits)
	h.register(dayAheadTool, h.dayAhead)
	h.register(cvTool, h.crossValidate)
	return h
}

func (h *ToolHandler) register(info models.ToolInfo, run toolFunc) {
	h.tools[info.Name] = tool{info: info, run: run}
	h.order = append(h.order, info.Name)
}

// ListTools handles GET /api/v1/tools
func (h *ToolHandler) ListTools(c *gin.Context) {
	out := make([]models.ToolInfo, len(h.order))
	for i, name := range h.order {
		out[i] = h.tools[name].info
	}
	c.JSON(http.StatusOK, gin.H{"tools": out, "count": len(out)})
}

// CallTool handles POST /api/v1/tools/:name
func (h *ToolHandler) CallTool(c *gin.Context) {
	name := c.Param("name")
	t, ok := h.tools[name]
	if !ok {
		names := append([]string(nil), h.order...)
		sort.Strings(names)
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "UNKNOWN_TOOL",
				Message: fmt.Sprintf("Unknown tool: %s", name),
				Details: map[string]any{"available": names},
			},
		})
		return
	}

	rec := diag.NewRecorder()
	start := time.Now()
	message, result, err := t.run(c, h.service.WithSink(rec))
	if err != nil {
		metrics.ObserveTool(name, "error", time.Since(start))
		h.logger.Warn("tool failed", "tool", name, "error", err)
		writeError(c, err)
		return
	}
	metrics.ObserveTool(name, "success", time.Since(start))

	warnings := rec.Events()
	if warnings == nil {
		warnings = []diag.Event{}
	}
	c.JSON(http.StatusOK, models.ToolResponse{
		Tool:     name,
		Message:  message,
		Result:   result,
		Warnings: warnings,
	})
}

// bind decodes the JSON body into dst. An empty body is allowed when dst
// has no required fields.
func bind(c *gin.Context, dst any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		if err := binding.Validator.ValidateStruct(dst); err != nil {
			return invalidRequest(err)
		}
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		return invalidRequest(err)
	}
	return nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &requestError{code: "INVALID_DATE", message: field + " must be in YYYY-MM-DD format"}
	}
	return d, nil
}

// decodeDataframe accepts a table document or a JSON string holding one.
func decodeDataframe(raw json.RawMessage) (model.Table, error) {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return model.Table{}, invalidRequest(err)
		}
		raw = json.RawMessage(s)
	}
	return data.DecodeTable(raw)
}

func (h *ToolHandler) fetch(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.FetchRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	t, err := svc.FetchAndNormalize(c.Request.Context(), req.Endpoint, market.FetchParams{
		From:            req.DateFrom,
		To:              req.DateTo,
		SettlementPoint: req.SettlementPoint,
		ResourceType:    req.ResourceType,
		Size:            req.Size,
		Extra:           req.Params,
	})
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Successfully fetched %d rows from %s", t.Len(), req.Endpoint), models.NewTableResponse(t, h.maxRows), nil
}

func (h *ToolHandler) listEndpoints(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.ListEndpointsRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	if req.Category == "" {
		req.Category = catalog.AllCategories
	}
	eps, err := svc.ListEndpoints(req.Category)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Found %d endpoints in category '%s'", len(eps), req.Category),
		gin.H{"category": req.Category, "count": len(eps), "endpoints": eps}, nil
}

func (h *ToolHandler) normalize(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.NormalizeRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	raw, err := decodeDataframe(req.DataframeJSON)
	if err != nil {
		return "", nil, err
	}
	t, err := svc.Normalize(raw)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Normalized table with %d rows", t.Len()), models.NewTableResponse(t, h.maxRows), nil
}

func (h *ToolHandler) endpointInfo(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.EndpointInfoRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	ep, err := svc.EndpointInfo(req.Endpoint)
	if err != nil {
		return "", nil, err
	}
	return "Endpoint Information: " + ep.Name, ep, nil
}

func (h *ToolHandler) vintage(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.VintageRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	from, err := parseDate("date_from", req.DateFrom)
	if err != nil {
		return "", nil, err
	}
	to, err := parseDate("date_to", req.DateTo)
	if err != nil {
		return "", nil, err
	}
	t, err := svc.GetVintageForecast(c.Request.Context(), req.Endpoint, from, to, market.FetchParams{
		SettlementPoint: req.SettlementPoint,
	})
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Vintage forecast: %d rows from %s", t.Len(), req.Endpoint), models.NewTableResponse(t, h.maxRows), nil
}

func (h *ToolHandler) netLoad(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.NetLoadRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	from, err := parseDate("date_from", req.DateFrom)
	if err != nil {
		return "", nil, err
	}
	to, err := parseDate("date_to", req.DateTo)
	if err != nil {
		return "", nil, err
	}
	rows, err := svc.GetNetLoadForecast(c.Request.Context(), from, to)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("Net Load Forecast: %d hours", len(rows)), models.NewTableResponse(model.NetLoadTable(rows), h.maxRows), nil
}

func (h *ToolHandler) splits(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.SplitsRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	t, err := decodeDataframe(req.DataframeJSON)
	if err != nil {
		return "", nil, err
	}
	k := req.InitialTrainingDays
	if k == 0 {
		k = forecast.DefaultTrainingDays
	}
	expanding := req.ExpandingWindow == nil || *req.ExpandingWindow
	folds, err := svc.CreateRollingSplits(t, k, expanding)
	if err != nil {
		return "", nil, err
	}
	out := make([]models.SplitInfo, len(folds))
	for i, f := range folds {
		out[i] = models.SplitInfo{
			Split:      i + 1,
			TestDate:   f.TestDate.Format(dateLayout),
			TrainStart: f.TrainStart.Format(dateLayout),
			TrainEnd:   f.TrainEnd.Format(dateLayout),
			TrainRows:  len(f.Train),
			TestRows:   len(f.Test),
		}
	}
	return fmt.Sprintf("Created %d splits", len(out)),
		gin.H{"splits": out, "count": len(out), "initial_training_days": k, "expanding_window": expanding}, nil
}

func (h *ToolHandler) dayAhead(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.DayAheadRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	date, err := parseDate("forecast_date", req.ForecastDate)
	if err != nil {
		return "", nil, err
	}
	res, err := svc.DayAheadForecast(c.Request.Context(), forecast.DayAheadParams{
		ForecastDate:     date,
		TrainingDays:     req.TrainingDays,
		PolynomialDegree: req.PolynomialDegree,
	})
	if err != nil {
		return "", nil, err
	}
	return "Day-Ahead Price Forecast", res, nil
}

func (h *ToolHandler) crossValidate(c *gin.Context, svc *market.Service) (string, any, error) {
	var req models.CVRequest
	if err := bind(c, &req); err != nil {
		return "", nil, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return "", nil, err
	}
	end, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return "", nil, err
	}
	res, err := svc.RollingForecastCV(c.Request.Context(), forecast.CVParams{
		Start:               start,
		End:                 end,
		InitialTrainingDays: req.InitialTrainingDays,
		PolynomialDegree:    req.PolynomialDegree,
		FixedWindow:         req.ExpandingWindow != nil && !*req.ExpandingWindow,
	})
	if err != nil {
		return "", nil, err
	}
	sample := res.Predictions
	if len(sample) > predictionSampleSize {
		sample = sample[:predictionSampleSize]
	}
	return "Rolling Forecast Cross-Validation Results", gin.H{
		"parameters":          res.Parameters,
		"overall_performance": res.OverallPerformance,
		"daily_metrics":       res.DailyMetrics,
		"predictions_sample":  sample,
		"predictions_total":   len(res.Predictions),
	}, nil
}
