package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appwebhook "github.com/storesync/backend/internal/application/webhook"
	"github.com/storesync/backend/internal/interfaces/http/dto"
	"github.com/storesync/backend/internal/interfaces/http/middleware"
)

// SignatureHeader carries the HMAC-SHA256 hex signature of the raw body
const SignatureHeader = "X-Salla-Signature"

// StoreHeader carries the store id when the payload omits the merchant field
const StoreHeader = "X-Salla-Store-ID"

// WebhookHandler is the platform-facing ingestion endpoint. It verifies
// the delivery signature over the untouched body bytes, then hands the
// parsed delivery to the processing service.
type WebhookHandler struct {
	BaseHandler
	verifier *appwebhook.Verifier
	service  *appwebhook.Service
	logger   *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler
func NewWebhookHandler(verifier *appwebhook.Verifier, service *appwebhook.Service, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		verifier: verifier,
		service:  service,
		logger:   logger,
	}
}

// flexibleID accepts a JSON string or number and normalizes to a string.
// The platform is inconsistent about numeric ids across event types.
type flexibleID struct {
	value string
}

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &f.value)
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	f.value = n.String()
	return nil
}

// webhookEnvelope is the platform delivery body. Data stays raw; only the
// entity id is pulled out, the rest is stored verbatim in the ledger.
type webhookEnvelope struct {
	Event    string          `json:"event"`
	Merchant flexibleID      `json:"merchant"`
	Data     json.RawMessage `json:"data"`
}

// Receive handles POST /webhooks/salla.
// Response codes steer the platform's retry behavior: 2xx stops retries,
// 4xx marks a permanently rejected delivery, 5xx triggers a retry.
func (h *WebhookHandler) Receive(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	if err := h.verifier.Verify(rawBody, c.GetHeader(SignatureHeader)); err != nil {
		h.logger.Warn("webhook signature rejected",
			zap.String("remote_addr", c.ClientIP()),
			zap.Error(err),
		)
		h.Unauthorized(c, dto.ErrCodeInvalidSignature, "Webhook signature verification failed")
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidJSON), dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
		return
	}

	storeID := envelope.Merchant.value
	if storeID == "" {
		storeID = c.GetHeader(StoreHeader)
	}

	delivery := appwebhook.Delivery{
		StoreID:  storeID,
		Event:    envelope.Event,
		EntityID: extractEntityID(envelope.Data),
		Payload:  string(rawBody),
	}

	outcome, err := h.service.Process(c.Request.Context(), delivery)
	if err != nil {
		// Validation failures map to 4xx through the domain error path;
		// handler failures fall through to 500 so the platform retries
		h.HandleError(c, err)
		return
	}

	h.Success(c, outcome)
}

// replayRequest bounds one stale-ledger replay run
type replayRequest struct {
	OlderThanMinutes int `json:"older_than_minutes" binding:"omitempty,min=1"`
	Limit            int `json:"limit" binding:"omitempty,min=1,max=1000"`
}

// Replay handles POST /webhooks/replay. It re-dispatches ledger entries
// left in the received state by a crash between registration and
// finalization. Defaults cover the common case; the body is optional.
func (h *WebhookHandler) Replay(c *gin.Context) {
	var req replayRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	result, err := h.service.ReplayStale(c.Request.Context(),
		time.Duration(req.OlderThanMinutes)*time.Minute, req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// extractEntityID pulls data.id out of the raw payload when present
func extractEntityID(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var body struct {
		ID flexibleID `json:"id"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.ID.value
}
