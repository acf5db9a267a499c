package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store/memory"
)

func intPtr(v int) *int { return &v }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newFitnessFixture(at time.Time) (*FitnessService, *memory.Store) {
	st := memory.New()
	svc := NewFitnessService(st)
	svc.now = fixedClock(at)
	return svc, st
}

func TestGetDayMissingReturnsZeroRecord(t *testing.T) {
	svc, _ := newFitnessFixture(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))

	m, err := svc.GetDay(context.Background(), "u1", "2026-03-10")
	require.NoError(t, err)
	require.Equal(t, "u1", m.UserID)
	require.Equal(t, "2026-03-10", m.Date)
	require.Zero(t, m.Steps)
}

func TestEnsureTodayIsIdempotent(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, st := newFitnessFixture(at)
	ctx := context.Background()

	require.NoError(t, svc.EnsureToday(ctx, "u1"))

	// A later write must survive a second EnsureToday.
	_, err := svc.SaveDaily(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(5000)})
	require.NoError(t, err)
	require.NoError(t, svc.EnsureToday(ctx, "u1"))

	m, err := st.Get(ctx, "u1", "2026-03-10")
	require.NoError(t, err)
	require.Equal(t, 5000, m.Steps)
}

func TestSaveDailyValidatesBeforeWriting(t *testing.T) {
	svc, st := newFitnessFixture(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.SaveDaily(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(3000)})
	require.NoError(t, err)

	_, err = svc.SaveDaily(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(-1)})
	var verr *metrics.ValidationError
	require.ErrorAs(t, err, &verr)

	m, err := st.Get(ctx, "u1", "2026-03-10")
	require.NoError(t, err)
	require.Equal(t, 3000, m.Steps)
}

func TestSaveStepsDerivesCalories(t *testing.T) {
	svc, st := newFitnessFixture(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	updated, err := svc.SaveSteps(ctx, "u1", 10000)
	require.NoError(t, err)
	require.Equal(t, 10000, updated.Steps)
	require.Equal(t, 400, updated.Calories)

	m, err := st.Get(ctx, "u1", "2026-03-10")
	require.NoError(t, err)
	require.Equal(t, 400, m.Calories)
}

func TestAddWaterAccumulates(t *testing.T) {
	svc, _ := newFitnessFixture(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.AddWater(ctx, "u1", 250)
	require.NoError(t, err)
	updated, err := svc.AddWater(ctx, "u1", 250)
	require.NoError(t, err)
	require.Equal(t, 500, updated.WaterMl)

	_, err = svc.AddWater(ctx, "u1", -10)
	var verr *metrics.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestGetDashboardDerivesDisplayValues(t *testing.T) {
	svc, _ := newFitnessFixture(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	_, err := svc.SaveSteps(ctx, "u1", 10000)
	require.NoError(t, err)

	d, err := svc.GetDashboard(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 10000, d.Metrics.Steps)
	require.Equal(t, 7.6, d.DistanceKm)
	require.Equal(t, 400, d.StepCalories)
}

func TestGetProgressWeek(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, st := newFitnessFixture(at)
	ctx := context.Background()

	// Three active days ending today.
	for i, steps := range []int{2000, 4000, 6000} {
		date := at.AddDate(0, 0, i-2).Format(metrics.DateLayout)
		require.NoError(t, st.Merge(ctx, "u1", date, metrics.PartialMetrics{Steps: intPtr(steps)}, at))
	}

	report, err := svc.GetProgress(ctx, "u1", PeriodWeek)
	require.NoError(t, err)

	require.Equal(t, PeriodWeek, report.Period)
	require.Len(t, report.Days, 8)
	require.Equal(t, "2026-03-03", report.StartDate)
	require.Equal(t, "2026-03-10", report.EndDate)

	require.Equal(t, 12000, report.Summary.TotalSteps)
	require.Equal(t, 3, report.Summary.DaysWithActivity)
	require.Equal(t, 3, report.Summary.CurrentStreak)
	require.Equal(t, 4000, report.Summary.AvgSteps)

	require.Contains(t, report.Trends, metrics.MetricSteps)
	require.Equal(t, metrics.TrendUp, report.Trends[metrics.MetricSteps].Direction)
}

func TestGetProgressRejectsUnknownPeriod(t *testing.T) {
	svc, _ := newFitnessFixture(time.Now())

	_, err := svc.GetProgress(context.Background(), "u1", "year")
	require.Error(t, err)
}

func TestWatchProgressDeliversOnChange(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, st := newFitnessFixture(at)
	ctx := context.Background()

	var reports []*ProgressReport
	unsub, err := svc.WatchProgress(ctx, "u1", PeriodWeek, func(r *ProgressReport) {
		reports = append(reports, r)
	})
	require.NoError(t, err)

	// Initial delivery of the empty window.
	require.Len(t, reports, 1)
	require.Zero(t, reports[0].Summary.TotalSteps)

	require.NoError(t, st.Merge(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(7000)}, at))
	require.Len(t, reports, 2)
	require.Equal(t, 7000, reports[1].Summary.TotalSteps)

	unsub()
	require.Zero(t, st.SubscriberCount())

	require.NoError(t, st.Merge(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(8000)}, at))
	require.Len(t, reports, 2)
}

func TestGetCalendarMarksActiveDays(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc, st := newFitnessFixture(at)
	ctx := context.Background()

	require.NoError(t, st.Merge(ctx, "u1", "2026-03-05", metrics.PartialMetrics{Steps: intPtr(100)}, at))

	cal, err := svc.GetCalendar(ctx, "u1", 2026, 3)
	require.NoError(t, err)

	require.Equal(t, 2026, cal.Year)
	require.Equal(t, 3, cal.Month)
	require.Len(t, cal.Days, 31)

	require.True(t, cal.Days[4].Active)
	require.False(t, cal.Days[4].IsToday)
	require.False(t, cal.Days[9].Active)
	require.True(t, cal.Days[9].IsToday)
}
