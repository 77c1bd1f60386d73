package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/middleware"
	"github.com/noah-isme/tutortrack-api/internal/service"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
	"github.com/noah-isme/tutortrack-api/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, timezone string) (*service.Dashboard, bool, error)
	SetFinancialOffset(ctx context.Context, offset decimal.Decimal) (int64, error)
	Calendar(ctx context.Context, view ledger.CalendarView, date string, timezone string) (*service.CalendarPayload, error)
	Reconcile(ctx context.Context) ledger.Reconciliation
}

// OffsetRequest sets the historical revenue offset.
type OffsetRequest struct {
	Offset decimal.Decimal `json:"offset"`
}

// DashboardHandler wires dashboard service to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Dashboard godoc
// @Summary Home screen aggregates
// @Tags Dashboard
// @Produce json
// @Param tz query string false "IANA time zone, also accepted as X-Timezone header"
// @Success 200 {object} response.Envelope
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	payload, cacheHit, err := h.service.Dashboard(c.Request.Context(), timezone(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	middleware.SetRevision(c, payload.Revision)
	meta := middleware.ExtractMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, payload, nil, meta)
}

// SetOffset godoc
// @Summary Set historical revenue offset
// @Tags Dashboard
// @Accept json
// @Produce json
// @Param payload body OffsetRequest true "Offset payload"
// @Success 200 {object} response.Envelope
// @Router /dashboard/offset [put]
func (h *DashboardHandler) SetOffset(c *gin.Context) {
	var req OffsetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid payload"))
		return
	}
	rev, err := h.service.SetFinancialOffset(c.Request.Context(), req.Offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"offset": req.Offset, "revision": rev}, nil)
}

// Calendar godoc
// @Summary Sessions per local day
// @Tags Dashboard
// @Produce json
// @Param view query string false "week, month or year"
// @Param date query string false "Anchor date (YYYY-MM-DD). Defaults to today"
// @Param tz query string false "IANA time zone"
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *DashboardHandler) Calendar(c *gin.Context) {
	payload, err := h.service.Calendar(c.Request.Context(), ledger.CalendarView(c.Query("view")), strings.TrimSpace(c.Query("date")), timezone(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// Reconcile godoc
// @Summary Recompute balances from history
// @Description Reports students whose stored balance differs from their history
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /ledger/reconcile [get]
func (h *DashboardHandler) Reconcile(c *gin.Context) {
	result := h.service.Reconcile(c.Request.Context())
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{"balanced": result.Balanced()})
}
