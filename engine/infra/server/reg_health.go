package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/graffiticode/graffiticode/pkg/logger"
	"github.com/graffiticode/graffiticode/pkg/version"
)

const (
	statusHealthy  = "healthy"
	statusNotReady = "not_ready"
)

// Pinger is the readiness probe the health route consults.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CreateHealthHandler reports readiness of the task storage and the build version.
// It answers 503 when storage does not respond.
func CreateHealthHandler(storage Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ready := true
		if err := storage.Ping(ctx); err != nil {
			logger.FromContext(ctx).Warn("Readiness probe failed", "component", "storage", "error", err)
			ready = false
		}
		status, code := statusHealthy, http.StatusOK
		if !ready {
			status, code = statusNotReady, http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": version.GetVersion(),
			"storage": gin.H{"ready": ready},
		})
	}
}
