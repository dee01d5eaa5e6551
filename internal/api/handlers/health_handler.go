package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/isdelr/blogpost-be/internal/api/render"
)

// HealthHandler reports store reachability and host vitals.
type HealthHandler struct {
	db      *sql.DB
	started time.Time
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	return &HealthHandler{db: db, started: time.Now()}
}

// Serve answers 200 when the database responds and 503 otherwise.
func (h *HealthHandler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database ping failed")
		status, code = "degraded", http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status":         status,
		"service_uptime": time.Since(h.started).Round(time.Second).String(),
	}
	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		body["host_uptime_seconds"] = uptime
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		body["memory_used_percent"] = vm.UsedPercent
	}
	render.JSON(w, code, body)
}
