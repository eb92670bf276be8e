package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/altseo/internal/api/middleware"
	"github.com/timmy/altseo/internal/domain"
	"github.com/timmy/altseo/internal/logger"
	"github.com/timmy/altseo/internal/pricing"
	"github.com/timmy/altseo/internal/provider"
	"github.com/timmy/altseo/internal/service"
)

// statusFor maps service and pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrImageNotFound),
		errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, provider.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidField),
		errors.Is(err, service.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, pricing.ErrSyncInProgress):
		return http.StatusConflict
	}

	switch domain.KindOf(err) {
	case domain.KindInput, domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindProvider, domain.KindSync:
		return http.StatusBadGateway
	}

	var pe *provider.Error
	if errors.As(err, &pe) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...} with the mapped status.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		middleware.GetLogger(c).WithError(err).Error("Request failed")
	}
	body := gin.H{"error": err.Error()}
	if id := logger.GetRequestID(c.Request.Context()); id != "" {
		body["request_id"] = id
	}
	c.JSON(status, body)
}
