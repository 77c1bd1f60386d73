package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

const dashboardCachePrefix = "dashboard"

type dashboardStore interface {
	Snapshot() *ledger.State
	SetFinancialOffset(offset decimal.Decimal) int64
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL        time.Duration
	DefaultTimezone string
}

// Dashboard is the home screen payload.
type Dashboard struct {
	Revision            int64                     `json:"revision"`
	Timezone            string                    `json:"timezone"`
	Stats               ledger.Stats              `json:"stats"`
	MonthlyRevenue      []ledger.MonthRevenue     `json:"monthly_revenue"`
	WeeklyActivity      []ledger.DayActivity      `json:"weekly_activity"`
	AttendanceBreakdown []ledger.AttendanceBucket `json:"attendance_breakdown"`
	RecentPayments      []ledger.PaymentView      `json:"recent_payments"`
	GeneratedAt         time.Time                 `json:"generated_at"`
}

// CalendarPayload lists sessions per day within a view window.
type CalendarPayload struct {
	View     ledger.CalendarView  `json:"view"`
	Timezone string               `json:"timezone"`
	From     string               `json:"from"`
	To       string               `json:"to"`
	Days     []ledger.CalendarDay `json:"days"`
}

// DashboardService composes aggregate views over the ledger snapshot.
type DashboardService struct {
	store  dashboardStore
	cache  *CacheService
	logger *zap.Logger
	now    func() time.Time
	cfg    DashboardServiceConfig
	// boot scopes cache keys to this process; revisions restart after a reload.
	boot string
}

// NewDashboardService constructs the dashboard service.
func NewDashboardService(store dashboardStore, cache *CacheService, logger *zap.Logger, cfg DashboardServiceConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "UTC"
	}
	return &DashboardService{store: store, cache: cache, logger: logger, now: time.Now, cfg: cfg, boot: uuid.NewString()}
}

// Dashboard computes the home screen for the viewer's time zone. The boolean reports a cache hit.
func (s *DashboardService) Dashboard(ctx context.Context, timezone string) (*Dashboard, bool, error) {
	loc, name, err := s.location(timezone)
	if err != nil {
		return nil, false, err
	}
	state := s.store.Snapshot()
	now := s.now().In(loc)

	key := fmt.Sprintf("%s:%s:%d:%s:%s", dashboardCachePrefix, s.boot, state.Revision, name, now.Format("2006-01-02"))
	var cached Dashboard
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	out := &Dashboard{
		Revision:            state.Revision,
		Timezone:            name,
		Stats:               ledger.ComputeStats(state),
		MonthlyRevenue:      ledger.MonthlyRevenue(state.Payments, loc),
		WeeklyActivity:      ledger.WeeklyActivity(state.Sessions, now, loc),
		AttendanceBreakdown: ledger.AttendanceBreakdown(state.Sessions),
		RecentPayments:      ledger.RecentPayments(state, ledger.RecentPaymentsLimit),
		GeneratedAt:         now.UTC(),
	}
	s.cache.Set(ctx, key, out, s.cfg.CacheTTL)
	return out, false, nil
}

// SetFinancialOffset updates the historical revenue offset and drops cached dashboards.
func (s *DashboardService) SetFinancialOffset(ctx context.Context, offset decimal.Decimal) (int64, error) {
	if offset.IsNegative() {
		return 0, appErrors.Clone(appErrors.ErrValidation, "offset must not be negative")
	}
	rev := s.store.SetFinancialOffset(offset)
	s.cache.Invalidate(ctx, dashboardCachePrefix+":*")
	s.logger.Info("financial offset updated", zap.String("offset", offset.String()), zap.Int64("revision", rev))
	return rev, nil
}

// Calendar groups sessions per local day for the view containing date. A plain YYYY-MM-DD date
// is read in the viewer's zone; an empty date means today.
func (s *DashboardService) Calendar(ctx context.Context, view ledger.CalendarView, date string, timezone string) (*CalendarPayload, error) {
	if view == "" {
		view = ledger.ViewMonth
	}
	if !view.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "view must be week, month or year")
	}
	loc, name, err := s.location(timezone)
	if err != nil {
		return nil, err
	}
	anchor, err := parseAnchor(date, loc)
	if err != nil {
		return nil, err
	}
	if anchor.IsZero() {
		anchor = s.now()
	}
	from, to := view.Window(anchor, loc)
	return &CalendarPayload{
		View:     view,
		Timezone: name,
		From:     from.Format("2006-01-02"),
		To:       to.Format("2006-01-02"),
		Days:     ledger.Calendar(s.store.Snapshot().Sessions, from, to, loc),
	}, nil
}

// Reconcile recomputes every balance from history and reports drift.
func (s *DashboardService) Reconcile(ctx context.Context) ledger.Reconciliation {
	result := ledger.Reconcile(s.store.Snapshot())
	if !result.Balanced() {
		s.logger.Warn("ledger drift detected", zap.Int("students", len(result.Drifts)), zap.Int64("revision", result.Revision))
	}
	return result
}

func (s *DashboardService) location(name string) (*time.Location, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.cfg.DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown time zone")
	}
	return loc, name, nil
}

func parseAnchor(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}
