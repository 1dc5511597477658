package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ercot-forecast/internal/api/models"
	"ercot-forecast/internal/catalog"
	"ercot-forecast/internal/market"
)

// EndpointHandler exposes the endpoint catalog as plain REST resources.
type EndpointHandler struct {
	service *market.Service
}

func NewEndpointHandler(svc *market.Service) *EndpointHandler {
	return &EndpointHandler{service: svc}
}

// ListEndpoints handles GET /api/v1/endpoints
func (h *EndpointHandler) ListEndpoints(c *gin.Context) {
	var req models.ListEndpointsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, invalidRequest(err))
		return
	}
	category := req.Category
	if category == "" {
		category = catalog.AllCategories
	}
	eps, err := h.service.ListEndpoints(category)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category":   category,
		"categories": h.service.Catalog().Categories(),
		"endpoints":  eps,
		"count":      len(eps),
	})
}

// GetEndpoint handles GET /api/v1/endpoints/:name
func (h *EndpointHandler) GetEndpoint(c *gin.Context) {
	ep, err := h.service.EndpointInfo(c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ep)
}
