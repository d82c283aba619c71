package handler

import (
	"github.com/gin-gonic/gin"

	appsync "github.com/storesync/backend/internal/application/sync"
	"github.com/storesync/backend/internal/domain/integration"
)

// SyncHandler exposes the reconciliation operations to the dashboard
type SyncHandler struct {
	BaseHandler
	service *appsync.Service
}

// NewSyncHandler creates a SyncHandler
func NewSyncHandler(service *appsync.Service) *SyncHandler {
	return &SyncHandler{service: service}
}

// BulkSync handles POST /stores/:store_id/sync/:kind.
// It pages through the full upstream collection; the response reports
// partial progress when a page fetch fails mid-scan.
func (h *SyncHandler) BulkSync(c *gin.Context) {
	storeID := c.Param("store_id")
	kind := integration.EntityKind(c.Param("kind"))

	result, err := h.service.BulkSync(c.Request.Context(), storeID, kind)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncEntity handles POST /stores/:store_id/sync/:kind/:entity_id
func (h *SyncHandler) SyncEntity(c *gin.Context) {
	storeID := c.Param("store_id")
	kind := integration.EntityKind(c.Param("kind"))
	entityID := c.Param("entity_id")

	if entityID == "" {
		h.BadRequest(c, "Entity ID is required")
		return
	}

	result, err := h.service.SyncEntity(c.Request.Context(), storeID, kind, entityID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CleanupDuplicates handles POST /stores/:store_id/cleanup
func (h *SyncHandler) CleanupDuplicates(c *gin.Context) {
	storeID := c.Param("store_id")

	result, err := h.service.CleanupDuplicates(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RefreshFromSnapshots handles POST /stores/:store_id/refresh
func (h *SyncHandler) RefreshFromSnapshots(c *gin.Context) {
	storeID := c.Param("store_id")

	result, err := h.service.RefreshFromSnapshots(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
