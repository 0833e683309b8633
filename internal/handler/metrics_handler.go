package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-gradebook-api/internal/service"
)

// ReadinessCheck reports whether one dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

const readinessTimeout = 2 * time.Second

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	checks  map[string]ReadinessCheck
}

// NewMetricsHandler constructs a metrics handler. checks are run by Ready.
func NewMetricsHandler(metrics *service.MetricsService, checks map[string]ReadinessCheck) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, checks: checks}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.String(http.StatusServiceUnavailable, "metrics disabled")
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health answers liveness checks. When metrics are enabled the running
// counters are included.
func (h *MetricsHandler) Health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if h.metrics != nil {
		body["metrics"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, body)
}

// Ready runs every dependency check and answers 503 when any fails.
func (h *MetricsHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(gin.H, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	label := "ready"
	if status != http.StatusOK {
		label = "unavailable"
	}
	c.JSON(status, gin.H{"status": label, "checks": results})
}
