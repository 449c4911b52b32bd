package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/Yashasrn33/RPGAI/internal/api/respond"
	"github.com/Yashasrn33/RPGAI/internal/health"
	"github.com/Yashasrn33/RPGAI/internal/store"
)

const (
	serviceName    = "rpgai"
	serviceVersion = "1.0.0"
)

// HealthHandler serves the liveness endpoint and the root service card.
type HealthHandler struct {
	store   store.MemoryStore
	service *health.ServiceHealthChecker
	model   string
	log     zerolog.Logger
}

func NewHealthHandler(st store.MemoryStore, svc *health.ServiceHealthChecker, model string, log zerolog.Logger) *HealthHandler {
	return &HealthHandler{store: st, service: svc, model: model, log: log.With().Str("component", "health_api").Logger()}
}

// Healthz GET /healthz
//
// Always answers 200 while the process serves; ok and status report
// dependency state so orchestration can tell degraded from dead.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	ok := true
	status := "healthy"
	if h.service != nil && !h.service.IsHealthy() {
		ok = false
		status = "degraded"
	}

	var count int64
	if n, err := h.store.Count(r.Context(), nil); err != nil {
		h.log.Error().Err(err).Msg("memory count failed")
		ok = false
		status = "degraded"
	} else {
		count = n
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":          ok,
		"service":     serviceName,
		"version":     serviceVersion,
		"model":       h.model,
		"memoryCount": count,
		"status":      status,
	})
}

// Root GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"service": "RPGAI - NPC Dialogue Service",
		"version": serviceVersion,
		"health":  "/healthz",
		"chat":    "/v1/chat.stream",
	})
}
