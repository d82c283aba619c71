package ecommerce

import "errors"

// SallaConfig holds configuration for the Salla Merchant API client
type SallaConfig struct {
	// APIBaseURL is the base URL for the Salla admin API
	APIBaseURL string
	// UserAgent is sent on every outbound request
	UserAgent string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// PageSize is the fixed page size used for list endpoints
	PageSize int
}

const (
	// SallaProductionAPIURL is the production admin API endpoint
	SallaProductionAPIURL = "https://api.salla.dev/admin/v2"
	// DefaultUserAgent identifies this service to the platform
	DefaultUserAgent = "storesync-backend/1.0"
)

// ErrSallaConfigMissingBaseURL indicates the API base URL is not set
var ErrSallaConfigMissingBaseURL = errors.New("salla: API base URL is required")

// NewSallaConfig creates a new Salla configuration with defaults
func NewSallaConfig() *SallaConfig {
	return &SallaConfig{
		APIBaseURL:     SallaProductionAPIURL,
		UserAgent:      DefaultUserAgent,
		TimeoutSeconds: 10,
		PageSize:       50,
	}
}

// Validate validates the Salla configuration and fills defaults
func (c *SallaConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrSallaConfigMissingBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		c.PageSize = 50
	}
	return nil
}
