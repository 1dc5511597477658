// Package api wires the tool server's HTTP routes.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ercot-forecast/internal/api/handlers"
	"ercot-forecast/internal/api/middleware"
	"ercot-forecast/internal/api/models"
	"ercot-forecast/internal/market"
)

type Options struct {
	Service *market.Service
	Logger  *slog.Logger
	// MaxResponseRows truncates tables in tool results.
	MaxResponseRows int
	CORSOrigins     []string
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(opts Options) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Logger(opts.Logger))
	router.Use(middleware.ErrorHandler(opts.Logger))
	router.Use(middleware.CORS(opts.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	toolHandler := handlers.NewToolHandler(opts.Service, opts.MaxResponseRows, opts.Logger)
	endpointHandler := handlers.NewEndpointHandler(opts.Service)
	rankHandler := handlers.NewRankHandler(opts.Service)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/tools", toolHandler.ListTools)
		v1.POST("/tools/:name", toolHandler.CallTool)

		v1.GET("/endpoints", endpointHandler.ListEndpoints)
		v1.GET("/endpoints/:name", endpointHandler.GetEndpoint)

		v1.GET("/rank", rankHandler.RankSettlementPoints)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	})
	return router
}
