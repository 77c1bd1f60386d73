package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	"github.com/noah-isme/tutortrack-api/internal/service"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

type fakeDashboardSrv struct {
	hit        bool
	timezone   string
	offset     decimal.Decimal
	view       ledger.CalendarView
	date       string
	reconciled ledger.Reconciliation
}

func (f *fakeDashboardSrv) Dashboard(_ context.Context, tz string) (*service.Dashboard, bool, error) {
	f.timezone = tz
	if tz == "Mars/Olympus" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "unknown time zone")
	}
	return &service.Dashboard{Revision: 12, Timezone: tz}, f.hit, nil
}

func (f *fakeDashboardSrv) SetFinancialOffset(_ context.Context, offset decimal.Decimal) (int64, error) {
	if offset.IsNegative() {
		return 0, appErrors.Clone(appErrors.ErrValidation, "offset must not be negative")
	}
	f.offset = offset
	return 13, nil
}

func (f *fakeDashboardSrv) Calendar(_ context.Context, view ledger.CalendarView, date string, tz string) (*service.CalendarPayload, error) {
	f.view, f.date, f.timezone = view, date, tz
	return &service.CalendarPayload{View: view, Timezone: tz}, nil
}

func (f *fakeDashboardSrv) Reconcile(context.Context) ledger.Reconciliation {
	return f.reconciled
}

func TestDashboardHandlerDashboard(t *testing.T) {
	srv := &fakeDashboardSrv{hit: true}
	h := NewDashboardHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/dashboard", "")
	c.Request.Header.Set(timezoneHeader, "Asia/Tokyo")

	h.Dashboard(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Asia/Tokyo", srv.timezone)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, float64(12), envelope.Meta["revision"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")
}

func TestDashboardHandlerQueryTimezoneWins(t *testing.T) {
	srv := &fakeDashboardSrv{}
	h := NewDashboardHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/dashboard?tz=Mars/Olympus", "")
	c.Request.Header.Set(timezoneHeader, "UTC")

	h.Dashboard(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Mars/Olympus", srv.timezone)
}

func TestDashboardHandlerSetOffset(t *testing.T) {
	srv := &fakeDashboardSrv{}
	h := NewDashboardHandler(srv)

	c, rec := newTestContext(http.MethodPut, "/dashboard/offset", `{"offset":"1000.50"}`)
	h.SetOffset(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000.5", srv.offset.String())

	c, rec = newTestContext(http.MethodPut, "/dashboard/offset", `{"offset":-1}`)
	h.SetOffset(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardHandlerCalendar(t *testing.T) {
	srv := &fakeDashboardSrv{}
	h := NewDashboardHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/calendar?view=week&date=2023-10-25&tz=America/New_York", "")
	h.Calendar(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ledger.ViewWeek, srv.view)
	assert.Equal(t, "2023-10-25", srv.date)
	assert.Equal(t, "America/New_York", srv.timezone)
}

func TestDashboardHandlerReconcile(t *testing.T) {
	srv := &fakeDashboardSrv{reconciled: ledger.Reconciliation{Revision: 4, Checked: 3}}
	h := NewDashboardHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/ledger/reconcile", "")

	h.Reconcile(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeEnvelope(t, rec).Meta["balanced"])
}
