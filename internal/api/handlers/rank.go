package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ercot-forecast/internal/analysis"
	"ercot-forecast/internal/api/models"
	"ercot-forecast/internal/diag"
	"ercot-forecast/internal/market"
	"ercot-forecast/internal/normalize"
)

const defaultRankLimit = 10

// RankHandler ranks settlement points by real-time price spread
type RankHandler struct {
	service *market.Service
}

func NewRankHandler(svc *market.Service) *RankHandler {
	return &RankHandler{service: svc}
}

// RankSettlementPoints handles GET /api/v1/rank
func (h *RankHandler) RankSettlementPoints(c *gin.Context) {
	var req models.RankRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, invalidRequest(err))
		return
	}
	for field, value := range map[string]string{"date_from": req.DateFrom, "date_to": req.DateTo} {
		if _, err := parseDate(field, value); err != nil {
			writeError(c, err)
			return
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRankLimit
	}

	rec := diag.NewRecorder()
	hourly, err := h.service.WithSink(rec).HourlyRealTimePrices(c.Request.Context(), market.FetchParams{
		From:            req.DateFrom,
		To:              req.DateTo,
		SettlementPoint: req.SettlementPoint,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	byPoint, err := analysis.GroupPrices(hourly, normalize.SettlementPointColumn, normalize.HourlyPriceColumn)
	if err != nil {
		writeError(c, err)
		return
	}

	ranked := analysis.RankBySpread(byPoint)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	resp := models.RankResponse{
		Rankings: make([]models.Ranking, len(ranked)),
		Count:    len(ranked),
		Warnings: rec.Events(),
	}
	for i, r := range ranked {
		resp.Rankings[i] = models.Ranking{Rank: i + 1, RankedSummary: r}
	}
	if resp.Warnings == nil {
		resp.Warnings = []diag.Event{}
	}
	c.JSON(http.StatusOK, resp)
}
