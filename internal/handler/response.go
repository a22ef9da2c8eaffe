package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridedispatch/internal/geo"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository/geo errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, service.ErrRideNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, geo.ErrNoResults):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrMissingFields),
		errors.Is(err, service.ErrInvalidVehicleClass),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, geo.ErrInvalidInput):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrCompletionFailed):
		return http.StatusConflict

	// Upstream provider failures
	case errors.Is(err, service.ErrFareUnavailable),
		errors.Is(err, geo.ErrGeocodeUnavailable),
		errors.Is(err, geo.ErrReverseGeocodeUnavailable),
		errors.Is(err, geo.ErrSuggestUnavailable),
		errors.Is(err, geo.ErrRouteUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
