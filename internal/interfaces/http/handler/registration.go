package handler

import (
	"github.com/gin-gonic/gin"

	appregistration "github.com/storesync/backend/internal/application/registration"
)

// RegistrationHandler exposes bulk webhook subscription registration
type RegistrationHandler struct {
	BaseHandler
	service *appregistration.Service
}

// NewRegistrationHandler creates a RegistrationHandler
func NewRegistrationHandler(service *appregistration.Service) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// RegisterWebhooksRequest is the request body for webhook registration
type RegisterWebhooksRequest struct {
	CallbackURL string `json:"callback_url" binding:"required,url"`
}

// RegisterAll handles POST /stores/:store_id/webhooks/register.
// The response lists per-event failures; a partial failure still returns 200.
func (h *RegistrationHandler) RegisterAll(c *gin.Context) {
	storeID := c.Param("store_id")

	var req RegisterWebhooksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "callback_url is required and must be a valid URL")
		return
	}

	result, err := h.service.RegisterAll(c.Request.Context(), storeID, req.CallbackURL)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListSubscriptions handles GET /webhooks/subscriptions
func (h *RegistrationHandler) ListSubscriptions(c *gin.Context) {
	h.Success(c, appregistration.Subscriptions())
}
