package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/storesync/backend/internal/domain/integration"
)

// maxResponseSize is the maximum allowed response size from the Salla API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrSallaInvalidEntityID indicates an empty or malformed entity ID
var ErrSallaInvalidEntityID = errors.New("salla: invalid entity ID")

// SallaAdapter implements the CommercePlatform interface for the Salla
// Merchant API. It is stateless with respect to stores; the per-store access
// token is passed on every call.
type SallaAdapter struct {
	config     *SallaConfig
	httpClient *http.Client
}

// NewSallaAdapter creates a new Salla adapter with the given configuration
func NewSallaAdapter(config *SallaConfig) (*SallaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &SallaAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
	}, nil
}

func validateEntityID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrSallaInvalidEntityID
	}
	return nil
}

// ---------------------------------------------------------------------------
// Product Operations
// ---------------------------------------------------------------------------

// GetProduct retrieves a single product from the platform
func (a *SallaAdapter) GetProduct(ctx context.Context, token, productID string) (*integration.PlatformProduct, error) {
	if err := validateEntityID(productID); err != nil {
		return nil, err
	}

	data, err := a.doRequest(ctx, token, http.MethodGet, "/products/"+url.PathEscape(productID), nil, nil)
	if err != nil {
		return nil, err
	}

	var payload sallaProduct
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse product: %v", integration.ErrPlatformInvalidResponse, err)
	}

	product := payload.toPlatform(data)
	return &product, nil
}

// ListProducts fetches one page of the product collection
func (a *SallaAdapter) ListProducts(ctx context.Context, token string, page integration.PageRequest) ([]integration.PlatformProduct, error) {
	items, err := a.doList(ctx, token, "/products", page)
	if err != nil {
		return nil, err
	}

	products := make([]integration.PlatformProduct, 0, len(items))
	for _, raw := range items {
		var payload sallaProduct
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("%w: failed to parse product list item: %v", integration.ErrPlatformInvalidResponse, err)
		}
		products = append(products, payload.toPlatform(raw))
	}
	return products, nil
}

// ---------------------------------------------------------------------------
// Order Operations
// ---------------------------------------------------------------------------

// GetOrder retrieves a single order from the platform
func (a *SallaAdapter) GetOrder(ctx context.Context, token, orderID string) (*integration.PlatformOrder, error) {
	if err := validateEntityID(orderID); err != nil {
		return nil, err
	}

	data, err := a.doRequest(ctx, token, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil)
	if err != nil {
		return nil, err
	}

	var payload sallaOrder
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order: %v", integration.ErrPlatformInvalidResponse, err)
	}

	order := payload.toPlatform(data)
	return &order, nil
}

// ListOrders fetches one page of the order collection
func (a *SallaAdapter) ListOrders(ctx context.Context, token string, page integration.PageRequest) ([]integration.PlatformOrder, error) {
	items, err := a.doList(ctx, token, "/orders", page)
	if err != nil {
		return nil, err
	}

	orders := make([]integration.PlatformOrder, 0, len(items))
	for _, raw := range items {
		var payload sallaOrder
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("%w: failed to parse order list item: %v", integration.ErrPlatformInvalidResponse, err)
		}
		orders = append(orders, payload.toPlatform(raw))
	}
	return orders, nil
}

// DecodeOrder re-parses a raw captured order body. The refresh flow feeds
// previously stored snapshot bodies back through the same decoding path the
// live API responses take.
func (a *SallaAdapter) DecodeOrder(raw []byte) (*integration.PlatformOrder, error) {
	var payload sallaOrder
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse order snapshot: %v", integration.ErrPlatformInvalidResponse, err)
	}

	order := payload.toPlatform(raw)
	return &order, nil
}

// ---------------------------------------------------------------------------
// Checkout Operations
// ---------------------------------------------------------------------------

// GetCheckout retrieves a single abandoned checkout from the platform
func (a *SallaAdapter) GetCheckout(ctx context.Context, token, checkoutID string) (*integration.PlatformCheckout, error) {
	if err := validateEntityID(checkoutID); err != nil {
		return nil, err
	}

	data, err := a.doRequest(ctx, token, http.MethodGet, "/checkouts/"+url.PathEscape(checkoutID), nil, nil)
	if err != nil {
		return nil, err
	}

	var payload sallaCheckout
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("%w: failed to parse checkout: %v", integration.ErrPlatformInvalidResponse, err)
	}

	checkout := payload.toPlatform(data)
	return &checkout, nil
}

// ListCheckouts fetches one page of the abandoned-checkout collection
func (a *SallaAdapter) ListCheckouts(ctx context.Context, token string, page integration.PageRequest) ([]integration.PlatformCheckout, error) {
	items, err := a.doList(ctx, token, "/checkouts", page)
	if err != nil {
		return nil, err
	}

	checkouts := make([]integration.PlatformCheckout, 0, len(items))
	for _, raw := range items {
		var payload sallaCheckout
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("%w: failed to parse checkout list item: %v", integration.ErrPlatformInvalidResponse, err)
		}
		checkouts = append(checkouts, payload.toPlatform(raw))
	}
	return checkouts, nil
}

// ---------------------------------------------------------------------------
// Webhook Registration
// ---------------------------------------------------------------------------

// RegisterWebhook registers one event subscription pointing at callbackURL
func (a *SallaAdapter) RegisterWebhook(ctx context.Context, token string, sub integration.WebhookSubscription, callbackURL string) error {
	if sub.Event == "" {
		return fmt.Errorf("%w: subscription event is empty", integration.ErrPlatformRequestFailed)
	}

	body := sallaWebhookRegistration{
		Name:             sub.Name,
		Event:            sub.Event,
		URL:              callbackURL,
		Version:          "2",
		SecurityStrategy: "signature",
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("salla: failed to encode registration: %w", err)
	}

	_, err = a.doRequest(ctx, token, http.MethodPost, "/webhooks/subscribe", nil, payload)
	return err
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doList performs a paginated GET and returns the raw list items
func (a *SallaAdapter) doList(ctx context.Context, token, path string, page integration.PageRequest) ([]json.RawMessage, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page))
	query.Set("per_page", strconv.Itoa(page.PerPage))

	data, err := a.doRequest(ctx, token, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: expected list payload: %v", integration.ErrPlatformInvalidResponse, err)
	}
	return items, nil
}

// doRequest performs an HTTP request against the Salla API and returns the
// unwrapped data payload. Error classification maps HTTP status codes onto
// the domain's platform errors so callers can decide retryability.
func (a *SallaAdapter) doRequest(ctx context.Context, token, method, path string, query url.Values, body []byte) (json.RawMessage, error) {
	if token == "" {
		return nil, integration.ErrPlatformAuthFailed
	}

	endpoint := strings.TrimRight(a.config.APIBaseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("salla: failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", a.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("salla: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, integration.ErrNotFoundUpstream
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, integration.ErrPlatformAuthFailed
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, integration.ErrPlatformRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: HTTP %d", integration.ErrPlatformUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, a.requestError(resp.StatusCode, respBody)
	}

	var envelope sallaEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrPlatformInvalidResponse, err)
	}
	if !envelope.Success && envelope.Error != nil {
		return nil, fmt.Errorf("%w: %s - %s", integration.ErrPlatformRequestFailed, envelope.Error.Code, envelope.Error.Message)
	}
	if len(envelope.Data) == 0 {
		// Registration and other mutation endpoints return no data payload
		return json.RawMessage("{}"), nil
	}
	return envelope.Data, nil
}

// requestError builds a descriptive error for a non-retryable 4xx
func (a *SallaAdapter) requestError(status int, body []byte) error {
	var envelope sallaEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		return fmt.Errorf("%w: HTTP %d: %s - %s", integration.ErrPlatformRequestFailed, status, envelope.Error.Code, envelope.Error.Message)
	}
	return fmt.Errorf("%w: HTTP %d", integration.ErrPlatformRequestFailed, status)
}

// Ensure SallaAdapter implements the CommercePlatform interface
var _ integration.CommercePlatform = (*SallaAdapter)(nil)
