package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

var startTime = time.Now()

// Pinger is a dependency the health check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler provides health endpoint.
type HealthHandler struct {
	db    Pinger
	redis Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// GetHealth responds with service, database and Redis status. A failing
// database makes the service unhealthy; Redis only degrades it.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	dbStatus := pingStatus(ctx, h.db)
	redisStatus := pingStatus(ctx, h.redis)

	status, code, message := "healthy", 200, "Service is healthy"
	switch {
	case dbStatus != "connected":
		status, code, message = "unhealthy", 503, "Database is unavailable"
	case redisStatus != "connected":
		status, message = "degraded", "Cart storage is unavailable"
	}

	data := gin.H{
		"status":   status,
		"version":  "1.0.0",
		"uptime":   int(time.Since(startTime).Seconds()),
		"database": dbStatus,
		"redis":    redisStatus,
	}
	if code != 200 {
		c.JSON(code, utils.Response{
			Success: false,
			Code:    code,
			Message: message,
			Data:    data,
			Error:   &utils.ErrorInfo{Code: "UNHEALTHY", Message: message},
			Meta:    utils.Meta{RequestID: c.GetString("request_id"), Timestamp: time.Now().Format(time.RFC3339)},
		})
		return
	}
	utils.Success(c, code, message, data)
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "disconnected"
	}
	return "connected"
}
