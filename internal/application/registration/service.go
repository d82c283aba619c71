package registration

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/storesync/backend/internal/application/credential"
	"github.com/storesync/backend/internal/domain/integration"
	"github.com/storesync/backend/internal/domain/shared"
	"github.com/storesync/backend/internal/domain/webhook"
)

// subscriptions is the fixed, versioned list of platform events this
// service registers for. Entries reference the event router's constants
// so a registered name is always one the router recognizes. Order
// matters only for readability of the per-event result breakdown.
var subscriptions = []integration.WebhookSubscription{
	{Event: webhook.EventProductCreated.String(), Name: "Product Created"},
	{Event: webhook.EventProductUpdated.String(), Name: "Product Updated"},
	{Event: webhook.EventProductDeleted.String(), Name: "Product Deleted"},
	{Event: webhook.EventProductAvailable.String(), Name: "Product Available"},
	{Event: webhook.EventProductQuantityLow.String(), Name: "Product Quantity Low"},
	{Event: webhook.EventOrderCreated.String(), Name: "Order Created"},
	{Event: webhook.EventOrderUpdated.String(), Name: "Order Updated"},
	{Event: webhook.EventOrderStatusUpdated.String(), Name: "Order Status Updated"},
	{Event: webhook.EventOrderCancelled.String(), Name: "Order Cancelled"},
	{Event: webhook.EventOrderRefunded.String(), Name: "Order Refunded"},
	{Event: webhook.EventOrderDeleted.String(), Name: "Order Deleted"},
	{Event: webhook.EventAbandonedCart.String(), Name: "Abandoned Cart"},
	{Event: webhook.EventCategoryCreated.String(), Name: "Category Created"},
	{Event: webhook.EventCategoryUpdated.String(), Name: "Category Updated"},
	{Event: webhook.EventAppInstalled.String(), Name: "App Installed"},
	{Event: webhook.EventAppUninstalled.String(), Name: "App Uninstalled"},
	{Event: webhook.EventAppStoreAuthorize.String(), Name: "App Store Authorize"},
	{Event: webhook.EventAppSuspended.String(), Name: "App Suspended"},
	{Event: webhook.EventAppResumed.String(), Name: "App Resumed"},
	{Event: webhook.EventDomainUpdated.String(), Name: "Domain Updated"},
	{Event: webhook.EventCustomFieldCreated.String(), Name: "Custom Field Created"},
	{Event: webhook.EventCustomFieldUpdated.String(), Name: "Custom Field Updated"},
	{Event: webhook.EventStoreRedact.String(), Name: "Store Redact"},
	{Event: webhook.EventCustomersRedact.String(), Name: "Customers Redact"},
	{Event: webhook.EventCustomersDataRequest.String(), Name: "Customers Data Request"},
}

// RegistrationError records one failed event registration
type RegistrationError struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// Result reports the per-event breakdown of a bulk registration run
type Result struct {
	Total      int                 `json:"total"`
	Successful int                 `json:"successful"`
	Failed     int                 `json:"failed"`
	Errors     []RegistrationError `json:"errors,omitempty"`
}

// Service bulk-registers the event subscription list with the platform.
// Partial success is expected; a failure on one event never blocks the rest.
type Service struct {
	platform integration.CommercePlatform
	creds    *credential.Service
	logger   *zap.Logger
}

// NewService creates a registration Service
func NewService(platform integration.CommercePlatform, creds *credential.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		platform: platform,
		creds:    creds,
		logger:   logger,
	}
}

// Subscriptions returns the full event subscription list
func Subscriptions() []integration.WebhookSubscription {
	out := make([]integration.WebhookSubscription, len(subscriptions))
	copy(out, subscriptions)
	return out
}

// RegisterAll registers every subscription against callbackURL for the
// store, continuing through individual failures.
func (s *Service) RegisterAll(ctx context.Context, storeID, callbackURL string) (*Result, error) {
	parsed, err := url.Parse(callbackURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, shared.NewDomainError("INVALID_CALLBACK_URL", fmt.Sprintf("Callback URL is not a valid absolute URL: %s", callbackURL))
	}

	token, err := s.creds.ResolveToken(ctx, storeID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Total:  len(subscriptions),
		Errors: make([]RegistrationError, 0),
	}

	for _, sub := range subscriptions {
		if err := s.platform.RegisterWebhook(ctx, token, sub, callbackURL); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RegistrationError{
				Event: sub.Event,
				Error: err.Error(),
			})
			s.logger.Warn("webhook registration failed",
				zap.String("store_id", storeID),
				zap.String("event", sub.Event),
				zap.Error(err),
			)
			continue
		}
		result.Successful++
	}

	s.logger.Info("webhook registration run complete",
		zap.String("store_id", storeID),
		zap.Int("total", result.Total),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}
