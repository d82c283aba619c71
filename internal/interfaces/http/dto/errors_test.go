package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeInvalidSignature, http.StatusUnauthorized},
		{ErrCodeStoreNotConnected, http.StatusUnprocessableEntity},
		{ErrCodeValidationRequired, http.StatusBadRequest},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeInternal, http.StatusInternalServerError},
		{"ERR_SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GetHTTPStatus(tt.code), tt.code)
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"NOT_FOUND", ErrCodeNotFound},
		{"STORE_NOT_CONNECTED", ErrCodeStoreNotConnected},
		{"MISSING_STORE_ID", ErrCodeValidationRequired},
		{"MISSING_ENTITY_ID", ErrCodeValidationRequired},
		{"INVALID_ENTITY_KIND", ErrCodeInvalidInput},
		{"INVALID_CALLBACK_URL", ErrCodeInvalidInput},
		{ErrCodeNotFound, ErrCodeNotFound},
		{"CUSTOM_CODE", "CUSTOM_CODE"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeErrorCode(tt.code), tt.code)
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Store not found", "req-123")

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "Store not found", resp.Error.Message)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "callback_url", Message: "This field is required"},
	}
	resp := NewValidationErrorResponse("Request validation failed", "req-123", details)

	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "callback_url", resp.Error.Details[0].Field)
}

func TestGetHTTPStatusPayloadTooLarge(t *testing.T) {
	assert.Equal(t, http.StatusRequestEntityTooLarge, GetHTTPStatus(ErrCodePayloadTooLarge))
}
