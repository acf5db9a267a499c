package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store"
	"fitTrackAPI/internal/workout"
)

func intPtr(v int) *int { return &v }

func TestMergeCreatesAndOverwritesPerField(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	err := s.Merge(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(4000), WaterMl: intPtr(500)}, now)
	require.NoError(t, err)

	err = s.Merge(ctx, "u1", "2026-03-10", metrics.PartialMetrics{WaterMl: intPtr(750)}, now)
	require.NoError(t, err)

	m, err := s.Get(ctx, "u1", "2026-03-10")
	require.NoError(t, err)
	require.Equal(t, 4000, m.Steps)
	require.Equal(t, 750, m.WaterMl)
}

func TestGetMissingDayReturnsNotFound(t *testing.T) {
	s := New()

	_, err := s.Get(context.Background(), "u1", "2026-03-10")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetRangeFillsGapsWithZeroDays(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", "2026-03-02", metrics.PartialMetrics{Steps: intPtr(3000)}, time.Now()))

	days, err := s.GetRange(ctx, "u1", "2026-03-01", "2026-03-03")
	require.NoError(t, err)
	require.Len(t, days, 3)

	require.Equal(t, "2026-03-01", days[0].Date)
	require.Zero(t, days[0].Metrics.Steps)
	require.Equal(t, 3000, days[1].Metrics.Steps)
	require.Zero(t, days[2].Metrics.Steps)
}

func TestGetRangeRejectsInvertedRange(t *testing.T) {
	s := New()

	_, err := s.GetRange(context.Background(), "u1", "2026-03-03", "2026-03-01")
	require.Error(t, err)
}

func TestSubscribeDeliversCurrentStateFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Merge(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(2000)}, time.Now()))

	var got []metrics.DailyMetrics
	unsub, err := s.Subscribe(ctx, "u1", "2026-03-10", func(m metrics.DailyMetrics) {
		got = append(got, m)
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, got, 1)
	require.Equal(t, 2000, got[0].Steps)

	require.NoError(t, s.Merge(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(2500)}, time.Now()))
	require.Len(t, got, 2)
	require.Equal(t, 2500, got[1].Steps)
}

func TestSubscribeIgnoresOtherUsersAndDates(t *testing.T) {
	s := New()
	ctx := context.Background()

	deliveries := 0
	unsub, err := s.Subscribe(ctx, "u1", "2026-03-10", func(metrics.DailyMetrics) { deliveries++ })
	require.NoError(t, err)
	defer unsub()
	require.Equal(t, 1, deliveries)

	require.NoError(t, s.Merge(ctx, "u2", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(1)}, time.Now()))
	require.NoError(t, s.Merge(ctx, "u1", "2026-03-11", metrics.PartialMetrics{Steps: intPtr(1)}, time.Now()))
	require.Equal(t, 1, deliveries)
}

func TestSubscribeRangeRedeliversWholeRange(t *testing.T) {
	s := New()
	ctx := context.Background()

	var last []metrics.DaySnapshot
	unsub, err := s.SubscribeRange(ctx, "u1", "2026-03-01", "2026-03-03", func(days []metrics.DaySnapshot) {
		last = days
	})
	require.NoError(t, err)
	defer unsub()

	require.Len(t, last, 3)

	require.NoError(t, s.Merge(ctx, "u1", "2026-03-02", metrics.PartialMetrics{Steps: intPtr(9000)}, time.Now()))
	require.Len(t, last, 3)
	require.Equal(t, 9000, last[1].Metrics.Steps)
}

func TestUnsubscribeReleasesAllListeners(t *testing.T) {
	s := New()
	ctx := context.Background()

	unsubDay, err := s.Subscribe(ctx, "u1", "2026-03-10", func(metrics.DailyMetrics) {})
	require.NoError(t, err)
	unsubRange, err := s.SubscribeRange(ctx, "u1", "2026-03-01", "2026-03-07", func([]metrics.DaySnapshot) {})
	require.NoError(t, err)

	require.Equal(t, 2, s.SubscriberCount())

	unsubDay()
	unsubRange()
	require.Zero(t, s.SubscriberCount())

	// Calling teardown again is a no-op.
	unsubDay()
	unsubRange()
	require.Zero(t, s.SubscriberCount())
}

func TestAppendWorkoutBumpsDayAtomically(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Merge(ctx, "u1", "2026-03-10", metrics.PartialMetrics{Calories: intPtr(100)}, now))

	bumped, err := s.AppendWorkout(ctx, workout.Entry{
		ID:             "w1",
		UserID:         "u1",
		Date:           "2026-03-10",
		Name:           "Morning run",
		Type:           workout.TypeCardio,
		CaloriesBurned: 300,
		CreatedAt:      now,
	})
	require.NoError(t, err)
	require.True(t, bumped)

	m, err := s.Get(ctx, "u1", "2026-03-10")
	require.NoError(t, err)
	require.Equal(t, 1, m.WorkoutCount)
	require.Equal(t, 400, m.Calories)
}

func TestAppendWorkoutRejectsDuplicateID(t *testing.T) {
	s := New()
	ctx := context.Background()
	entry := workout.Entry{ID: "w1", UserID: "u1", Date: "2026-03-10", Name: "Run", Type: workout.TypeCardio, CreatedAt: time.Now()}

	_, err := s.AppendWorkout(ctx, entry)
	require.NoError(t, err)

	_, err = s.AppendWorkout(ctx, entry)
	require.Error(t, err)
}

func TestListWorkoutsNewestFirstWithLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []string{"w1", "w2", "w3"} {
		_, err := s.AppendWorkout(ctx, workout.Entry{
			ID:        id,
			UserID:    "u1",
			Date:      "2026-03-10",
			Name:      "Session " + id,
			Type:      workout.TypeStrength,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := s.ListWorkouts(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "w3", entries[0].ID)
	require.Equal(t, "w2", entries[1].ID)
}

func TestQueryTopByMetricSkipsZeroValues(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Merge(ctx, "a", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(100)}, now))
	require.NoError(t, s.Merge(ctx, "b", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(300)}, now))
	require.NoError(t, s.Merge(ctx, "c", "2026-03-10", metrics.PartialMetrics{Steps: intPtr(0)}, now))
	require.NoError(t, s.Merge(ctx, "d", "2026-03-11", metrics.PartialMetrics{Steps: intPtr(999)}, now))

	top, err := s.QueryTopByMetric(ctx, "2026-03-10", metrics.MetricSteps, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	require.Equal(t, "b", top[0].UserID)
	require.Equal(t, "a", top[1].UserID)
}
