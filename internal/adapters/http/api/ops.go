package api

import (
	"net/http"

	"github.com/okian/moodmarket/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider reports service internals such as queue depth and height.
type StatsProvider interface {
	GetStats() map[string]any
}

// OpsHandler serves the operational endpoints. The Prometheus registry
// doubles as the liveness probe.
type OpsHandler struct {
	registry http.Handler
	stats    StatsProvider
}

// NewOpsHandler creates the health and stats handler.
func NewOpsHandler(stats StatsProvider) *OpsHandler {
	return &OpsHandler{
		registry: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		stats:    stats,
	}
}

// HandleHealth handles GET /healthz.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.registry.ServeHTTP(w, r)
}

// HandleStats handles GET /stats.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}
