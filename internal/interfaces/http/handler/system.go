package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler serves the service identification endpoints.
type SystemHandler struct {
	BaseHandler
	startedAt time.Time
}

func NewSystemHandler() *SystemHandler {
	return &SystemHandler{startedAt: time.Now()}
}

// SystemInfoResponse identifies the running service build.
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// GetSystemInfo reports the service name, version and uptime.
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "StoreSync Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// PingResponse is the liveness reply.
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping answers liveness checks without touching any dependency.
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
