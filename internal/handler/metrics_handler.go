package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutortrack-api/internal/service"
	"github.com/noah-isme/tutortrack-api/pkg/response"
)

type persistenceStatus interface {
	Status() (service.BootstrapResult, int)
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics     *service.MetricsService
	persistence persistenceStatus
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, persistence persistenceStatus) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, persistence: persistence}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @Summary Readiness and bootstrap status
// @Description Reports where the ledger was loaded from and how many writes are pending
// @Tags Observability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.persistence == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
		return
	}
	result, pending := h.persistence.Status()
	response.JSON(c, http.StatusOK, gin.H{
		"status":    "ready",
		"bootstrap": result,
		"pending":   pending,
		"metrics":   h.metrics.Snapshot(),
	}, nil)
}
