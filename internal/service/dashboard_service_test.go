package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/tutortrack-api/internal/ledger"
	appErrors "github.com/noah-isme/tutortrack-api/pkg/errors"
)

func newDashboardService(t *testing.T, cache *memoryCache) (*DashboardService, *ledger.Store, *MetricsService) {
	t.Helper()
	store := newSeededStore(t)
	metrics := NewMetricsService()
	svc := NewDashboardService(store, NewCacheService(cache, metrics, time.Minute, nil, true), nil, DashboardServiceConfig{})
	svc.now = func() time.Time { return fixedNow }
	return svc, store, metrics
}

func TestDashboardServiceComputesAndCaches(t *testing.T) {
	cache := newMemoryCache()
	svc, _, metrics := newDashboardService(t, cache)
	ctx := context.Background()

	first, hit, err := svc.Dashboard(ctx, "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "UTC", first.Timezone)
	assert.True(t, first.Stats.TotalRevenue.Equal(dec("350")))
	assert.True(t, first.Stats.TotalOutstanding.Equal(dec("100")))
	assert.Equal(t, 3, first.Stats.ActiveStudents)
	assert.Equal(t, 3, first.Stats.TotalSessions)
	require.Len(t, first.MonthlyRevenue, 1)
	assert.Equal(t, "Oct", first.MonthlyRevenue[0].Name)
	assert.Len(t, first.WeeklyActivity, 7)
	require.Len(t, first.RecentPayments, 2)
	assert.Equal(t, "Bob Smith", first.RecentPayments[0].StudentName)

	second, hit, err := svc.Dashboard(ctx, "UTC")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, second.Stats.TotalRevenue.Equal(first.Stats.TotalRevenue))
	assert.Equal(t, uint64(1), metrics.Snapshot().CacheHits)
}

func TestDashboardServiceOffsetInvalidates(t *testing.T) {
	cache := newMemoryCache()
	svc, store, _ := newDashboardService(t, cache)
	ctx := context.Background()

	before, _, err := svc.Dashboard(ctx, "UTC")
	require.NoError(t, err)

	rev, err := svc.SetFinancialOffset(ctx, dec("1000"))
	require.NoError(t, err)
	assert.Equal(t, store.Snapshot().Revision, rev)
	assert.Greater(t, rev, before.Revision)
	assert.NotEmpty(t, cache.deleted)

	after, hit, err := svc.Dashboard(ctx, "UTC")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.True(t, after.Stats.TotalRevenue.Equal(dec("1350")))

	_, err = svc.SetFinancialOffset(ctx, dec("-1"))
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestDashboardServiceIgnoresEntriesFromPreviousBoot(t *testing.T) {
	cache := newMemoryCache()
	previous, store, _ := newDashboardService(t, cache)
	ctx := context.Background()

	_, _, err := previous.Dashboard(ctx, "UTC")
	require.NoError(t, err)

	restarted := NewDashboardService(store, NewCacheService(cache, NewMetricsService(), time.Minute, nil, true), nil, DashboardServiceConfig{})
	restarted.now = func() time.Time { return fixedNow }
	_, hit, err := restarted.Dashboard(ctx, "UTC")
	require.NoError(t, err)
	assert.False(t, hit)

	_, hit, err = restarted.Dashboard(ctx, "UTC")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestDashboardServiceWithoutCache(t *testing.T) {
	store := newSeededStore(t)
	svc := NewDashboardService(store, nil, nil, DashboardServiceConfig{DefaultTimezone: "Asia/Tokyo"})

	out, hit, err := svc.Dashboard(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "Asia/Tokyo", out.Timezone)

	_, _, err = svc.Dashboard(context.Background(), "Mars/Olympus")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestDashboardServiceCalendar(t *testing.T) {
	svc, _, _ := newDashboardService(t, newMemoryCache())
	ctx := context.Background()
	anchor := "2023-10-20"

	month, err := svc.Calendar(ctx, "", anchor, "UTC")
	require.NoError(t, err)
	assert.Equal(t, ledger.ViewMonth, month.View)
	assert.Equal(t, "2023-10-01", month.From)
	require.Len(t, month.Days, 2)
	assert.Equal(t, "2023-10-25", month.Days[0].Date)
	assert.Equal(t, "2023-10-26", month.Days[1].Date)

	tokyo, err := svc.Calendar(ctx, ledger.ViewMonth, anchor, "Asia/Tokyo")
	require.NoError(t, err)
	require.Len(t, tokyo.Days, 2)
	assert.Equal(t, "2023-10-27", tokyo.Days[1].Date)

	_, err = svc.Calendar(ctx, "decade", anchor, "UTC")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Calendar(ctx, ledger.ViewMonth, "25/10/2023", "UTC")
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))
}

func TestDashboardServiceCalendarReadsDatesInViewerZone(t *testing.T) {
	svc, _, _ := newDashboardService(t, newMemoryCache())
	ctx := context.Background()

	month, err := svc.Calendar(ctx, ledger.ViewMonth, "2023-11-01", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "2023-11-01", month.From)
	assert.Equal(t, "2023-12-01", month.To)
	require.Len(t, month.Days, 1)
	assert.Equal(t, "2023-11-01", month.Days[0].Date)

	week, err := svc.Calendar(ctx, ledger.ViewWeek, "2023-10-29", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "2023-10-29", week.From)
	assert.Equal(t, "2023-11-05", week.To)
	require.Len(t, week.Days, 1)
	assert.Equal(t, "2023-11-01", week.Days[0].Date)

	exact, err := svc.Calendar(ctx, ledger.ViewMonth, "2023-11-01T02:00:00Z", "America/New_York")
	require.NoError(t, err)
	assert.Equal(t, "2023-10-01", exact.From)
}

func TestDashboardServiceReconcile(t *testing.T) {
	svc, _, _ := newDashboardService(t, newMemoryCache())
	result := svc.Reconcile(context.Background())
	assert.True(t, result.Balanced())
	assert.Empty(t, result.Drifts)
}
