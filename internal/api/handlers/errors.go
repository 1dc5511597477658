package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ercot-forecast/internal/api/models"
	"ercot-forecast/internal/catalog"
	"ercot-forecast/internal/data"
	"ercot-forecast/internal/forecast"
	"ercot-forecast/internal/model"
	"ercot-forecast/internal/normalize"
)

// requestError is a problem with the caller's input.
type requestError struct {
	code    string
	message string
}

func (e *requestError) Error() string { return e.message }

func invalidRequest(err error) error {
	return &requestError{code: "INVALID_REQUEST", message: err.Error()}
}

// writeError maps err to a status and the standard error body.
func writeError(c *gin.Context, err error) {
	status, detail := classify(err)
	_ = c.Error(err)
	c.JSON(status, models.ErrorResponse{Error: detail})
}

func classify(err error) (int, models.ErrorDetail) {
	var (
		reqErr       *requestError
		unknown      *catalog.UnknownEndpointError
		insufficient *forecast.InsufficientDataError
		apiErr       *data.APIError
	)
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, models.ErrorDetail{Code: reqErr.code, Message: reqErr.message}
	case errors.As(err, &unknown):
		return http.StatusNotFound, models.ErrorDetail{
			Code:    "UNKNOWN_ENDPOINT",
			Message: err.Error(),
			Details: map[string]any{"endpoint": unknown.Name, "available": unknown.Available},
		}
	case errors.Is(err, catalog.ErrUnknownCategory):
		return http.StatusBadRequest, models.ErrorDetail{Code: "UNKNOWN_CATEGORY", Message: err.Error()}
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity, models.ErrorDetail{
			Code:    "INSUFFICIENT_DATA",
			Message: err.Error(),
			Details: map[string]any{"required": insufficient.Required, "available": insufficient.Available},
		}
	case errors.Is(err, forecast.ErrInvalidArgument):
		return http.StatusBadRequest, models.ErrorDetail{Code: "INVALID_ARGUMENT", Message: err.Error()}
	case errors.Is(err, data.ErrUnsupportedTable):
		return http.StatusBadRequest, models.ErrorDetail{Code: "INVALID_TABLE", Message: err.Error()}
	case errors.Is(err, forecast.ErrNoTrainingData), errors.Is(err, forecast.ErrNoSuccessfulSplits),
		errors.Is(err, forecast.ErrTooFewObservations):
		return http.StatusUnprocessableEntity, models.ErrorDetail{Code: "NO_USABLE_DATA", Message: err.Error()}
	case errors.Is(err, model.ErrMissingColumn):
		return http.StatusUnprocessableEntity, models.ErrorDetail{Code: "MISSING_COLUMN", Message: err.Error()}
	case errors.Is(err, normalize.ErrInvalidTimestamp):
		return http.StatusUnprocessableEntity, models.ErrorDetail{Code: "INVALID_TIMESTAMP", Message: err.Error()}
	case errors.As(err, &apiErr):
		return upstreamStatus(apiErr), models.ErrorDetail{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: map[string]any{
				"status_code": apiErr.StatusCode,
				"retry_after": apiErr.RetryAfter,
			},
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, models.ErrorDetail{Code: data.CodeTimeout, Message: err.Error()}
	}
	return http.StatusInternalServerError, models.ErrorDetail{Code: "INTERNAL_ERROR", Message: err.Error()}
}

func upstreamStatus(e *data.APIError) int {
	switch {
	case e.Code == data.CodeTimeout:
		return http.StatusGatewayTimeout
	case e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusUnauthorized:
		return http.StatusUnauthorized
	case e.StatusCode == http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case e.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
