package dto

import "net/http"

// Wire error codes, ERR_<CATEGORY>_<DESCRIPTION>. Handlers emit these;
// clients are expected to branch on the code, not the message.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"

	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeForbidden    = "ERR_FORBIDDEN"
	// ErrCodeInvalidSignature covers webhook deliveries whose HMAC fails
	ErrCodeInvalidSignature = "ERR_INVALID_SIGNATURE"

	ErrCodeNotFound      = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	ErrCodeConflict      = "ERR_CONFLICT"

	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeStoreNotConnected means the store has no usable platform credential
	ErrCodeStoreNotConnected = "ERR_STORE_NOT_CONNECTED"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"

	// Upstream codes surface commerce platform failures as 502s
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamAuth        = "ERR_UPSTREAM_AUTH"
	ErrCodeUpstreamRateLimited = "ERR_UPSTREAM_RATE_LIMITED"

	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps each wire code to its HTTP status.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,

	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeInvalidSignature: http.StatusUnauthorized,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeConflict:      http.StatusConflict,

	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeStoreNotConnected: http.StatusUnprocessableEntity,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeUpstreamUnavailable: http.StatusBadGateway,
	ErrCodeUpstreamAuth:        http.StatusBadGateway,
	ErrCodeUpstreamRateLimited: http.StatusBadGateway,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status for a wire code, falling back
// to 500 for codes the map does not know.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain-layer error codes to the wire format.
// Domain errors use bare codes; the API exposes the ERR_ namespace.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"FORBIDDEN":            ErrCodeForbidden,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
	"STORE_NOT_CONNECTED":  ErrCodeStoreNotConnected,
	"MISSING_STORE_ID":     ErrCodeValidationRequired,
	"MISSING_EVENT":        ErrCodeValidationRequired,
	"MISSING_ENTITY_ID":    ErrCodeValidationRequired,
	"INVALID_ENTITY_KIND":  ErrCodeInvalidInput,
	"INVALID_CALLBACK_URL": ErrCodeInvalidInput,
	"INVALID_CREDENTIAL":   ErrCodeInvalidInput,
}

// NormalizeErrorCode converts a domain error code to the wire format.
// Codes already in the ERR_ namespace, and unknown codes, pass through.
func NormalizeErrorCode(code string) string {
	if wire, ok := DomainErrorCodeMapping[code]; ok {
		return wire
	}
	return code
}
