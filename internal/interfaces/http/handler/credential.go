package handler

import (
	"github.com/gin-gonic/gin"

	appcredential "github.com/storesync/backend/internal/application/credential"
)

// CredentialHandler manages the store's platform connection
type CredentialHandler struct {
	BaseHandler
	service *appcredential.Service
}

// NewCredentialHandler creates a CredentialHandler
func NewCredentialHandler(service *appcredential.Service) *CredentialHandler {
	return &CredentialHandler{service: service}
}

// ConnectStoreRequest is the request body for connecting a store
type ConnectStoreRequest struct {
	AccessToken string `json:"access_token" binding:"required"`
	MerchantID  string `json:"merchant_id"`
	StoreInfo   string `json:"store_info"`
}

// CredentialResponse is the connection state view. The token never leaves
// the server, encrypted or otherwise.
type CredentialResponse struct {
	StoreID    string `json:"store_id"`
	MerchantID string `json:"merchant_id,omitempty"`
	State      string `json:"state"`
}

// Connect handles PUT /stores/:store_id/credential
func (h *CredentialHandler) Connect(c *gin.Context) {
	storeID := c.Param("store_id")

	var req ConnectStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "access_token is required")
		return
	}

	cred, err := h.service.Connect(c.Request.Context(), storeID, req.AccessToken, req.MerchantID, req.StoreInfo)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CredentialResponse{
		StoreID:    cred.StoreID,
		MerchantID: cred.MerchantID,
		State:      string(cred.State),
	})
}

// Get handles GET /stores/:store_id/credential
func (h *CredentialHandler) Get(c *gin.Context) {
	storeID := c.Param("store_id")

	cred, err := h.service.Get(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, CredentialResponse{
		StoreID:    cred.StoreID,
		MerchantID: cred.MerchantID,
		State:      string(cred.State),
	})
}

// Disconnect handles DELETE /stores/:store_id/credential
func (h *CredentialHandler) Disconnect(c *gin.Context) {
	storeID := c.Param("store_id")

	if err := h.service.Disconnect(c.Request.Context(), storeID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
