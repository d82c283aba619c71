package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storesync/backend/internal/domain/integration"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/interfaces/http/dto"
)

// BaseHandler gives every handler the same response vocabulary.
type BaseHandler struct{}

// getRequestID prefers the id the RequestID middleware stored in the
// gin context (which covers minted ids) and falls back to the inbound
// header for requests that bypassed the middleware.
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// Success sends a 200 with the standard envelope.
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// NoContent sends a bare 204.
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error envelope with an explicit status and code.
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 with the generic bad-request code.
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 with a caller-chosen code, so signature
// failures keep their own code.
func (h *BaseHandler) Unauthorized(c *gin.Context, code, message string) {
	h.Error(c, http.StatusUnauthorized, code, message)
}

// ValidationError sends a 400 with per-field details.
func (h *BaseHandler) ValidationError(c *gin.Context, details []dto.ValidationDetail) {
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
		"Request validation failed",
		getRequestID(c),
		details,
	))
}

// HandleError maps domain and platform errors onto HTTP responses.
// Anything unrecognized becomes an opaque 500; internal detail never
// leaks to the caller.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	if errors.Is(err, shared.ErrNotFound) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeNotFound, "Resource not found", requestID))
		return
	}

	// Platform failures surface as gateway errors so callers can tell
	// them apart from our own faults
	if code, ok := upstreamErrorCode(err); ok {
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(
			code, err.Error(), requestID))
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal, "An unexpected error occurred", requestID))
}

func upstreamErrorCode(err error) (string, bool) {
	switch {
	case errors.Is(err, integration.ErrPlatformAuthFailed):
		return dto.ErrCodeUpstreamAuth, true
	case errors.Is(err, integration.ErrPlatformRateLimited):
		return dto.ErrCodeUpstreamRateLimited, true
	case errors.Is(err, integration.ErrPlatformUnavailable),
		errors.Is(err, integration.ErrPlatformRequestFailed),
		errors.Is(err, integration.ErrPlatformInvalidResponse):
		return dto.ErrCodeUpstreamUnavailable, true
	default:
		return "", false
	}
}
