package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthStats reports process state for the health endpoint.
type HealthStats interface {
	Count() int
}

type RetentionStatus interface {
	LastRun() string
}

type HealthHandler struct {
	connections HealthStats
	retention   RetentionStatus
	started     time.Time
}

func NewHealthHandler(connections HealthStats, retention RetentionStatus) *HealthHandler {
	return &HealthHandler{
		connections: connections,
		retention:   retention,
		started:     time.Now(),
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}
	if h.connections != nil {
		body["connections"] = h.connections.Count()
	}
	if h.retention != nil {
		body["retention_last_run"] = h.retention.LastRun()
	}
	return c.JSON(http.StatusOK, body)
}
