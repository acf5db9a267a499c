package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func stepDays(values ...int) []DaySnapshot {
	days := make([]DaySnapshot, len(values))
	for i, v := range values {
		days[i] = day("2026-03-0"+string(rune('1'+i)), v, 0, 0, 0)
	}
	return days
}

func TestTrendTooFewDaysIsNeutral(t *testing.T) {
	require.Equal(t, TrendNeutral, Trend(nil, MetricSteps).Direction)
	require.Equal(t, TrendNeutral, Trend(stepDays(5000), MetricSteps).Direction)
}

func TestTrendEmptyPreviousWindowWithRecentActivity(t *testing.T) {
	// Previous window averages zero, recent has activity.
	days := stepDays(0, 0, 0, 50, 50, 50)

	result := Trend(days, MetricSteps)
	require.Equal(t, TrendUp, result.Direction)
	require.Equal(t, 100.0, result.MagnitudePercent)
}

func TestTrendBothWindowsZeroIsNeutral(t *testing.T) {
	days := stepDays(0, 0, 0, 0, 0, 0)

	result := Trend(days, MetricSteps)
	require.Equal(t, TrendNeutral, result.Direction)
}

func TestTrendUpBeyondThreshold(t *testing.T) {
	days := stepDays(1000, 1000, 1000, 2000, 2000, 2000)

	result := Trend(days, MetricSteps)
	require.Equal(t, TrendUp, result.Direction)
	require.InDelta(t, 100.0, result.MagnitudePercent, 1e-9)
}

func TestTrendDownBeyondThreshold(t *testing.T) {
	days := stepDays(2000, 2000, 2000, 1000, 1000, 1000)

	result := Trend(days, MetricSteps)
	require.Equal(t, TrendDown, result.Direction)
	require.InDelta(t, 50.0, result.MagnitudePercent, 1e-9)
}

func TestTrendSmallMovementIsNeutral(t *testing.T) {
	days := stepDays(1000, 1000, 1000, 1030, 1030, 1030)

	result := Trend(days, MetricSteps)
	require.Equal(t, TrendNeutral, result.Direction)
	require.InDelta(t, 3.0, result.MagnitudePercent, 1e-9)
}

func TestTrendShortRangeUsesSmallerWindows(t *testing.T) {
	// Two days: recent window is both days, previous window is empty.
	days := stepDays(1000, 2000)

	result := Trend(days, MetricSteps)
	require.Equal(t, TrendUp, result.Direction)
	require.Equal(t, 100.0, result.MagnitudePercent)
}

func TestTrendOtherMetrics(t *testing.T) {
	days := []DaySnapshot{
		day("2026-03-01", 0, 0, 500, 0),
		day("2026-03-02", 0, 0, 500, 0),
		day("2026-03-03", 0, 0, 500, 0),
		day("2026-03-04", 0, 0, 1500, 0),
		day("2026-03-05", 0, 0, 1500, 0),
		day("2026-03-06", 0, 0, 1500, 0),
	}

	result := Trend(days, MetricWater)
	require.Equal(t, TrendUp, result.Direction)
	require.InDelta(t, 200.0, result.MagnitudePercent, 1e-9)

	// Steps are flat zero, independent of the water movement.
	require.Equal(t, TrendNeutral, Trend(days, MetricSteps).Direction)
}
