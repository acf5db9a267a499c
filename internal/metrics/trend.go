package metrics

import "math"

// TrendDirection is the outcome of comparing two recent sub-windows of a
// metric.
type TrendDirection string

const (
	TrendUp      TrendDirection = "up"
	TrendDown    TrendDirection = "down"
	TrendNeutral TrendDirection = "neutral"
)

// Movements inside this band count as neutral.
const trendThresholdPct = 5.0

type TrendResult struct {
	Direction        TrendDirection `json:"direction"`
	MagnitudePercent float64        `json:"magnitudePercent"`
}

// Trend compares the average of the last up-to-3 days against the average of
// the 3 days before that window. This is deliberately a plain two-window
// comparison rather than a regression, so results are exactly reproducible.
//
// With fewer than 2 days of data the trend is neutral. When the previous
// window is empty or averages zero, any recent activity reports as up with a
// fixed magnitude of 100.
func Trend(days []DaySnapshot, metric Metric) TrendResult {
	if len(days) < 2 {
		return TrendResult{Direction: TrendNeutral}
	}

	recentLen := 3
	if len(days) < recentLen {
		recentLen = len(days)
	}
	recent := windowAverage(days[len(days)-recentLen:], metric)

	prevEnd := len(days) - recentLen
	prevStart := prevEnd - 3
	if prevStart < 0 {
		prevStart = 0
	}
	previous := windowAverage(days[prevStart:prevEnd], metric)

	if previous == 0 {
		if recent > 0 {
			return TrendResult{Direction: TrendUp, MagnitudePercent: 100}
		}
		return TrendResult{Direction: TrendNeutral, MagnitudePercent: 100}
	}

	pct := (recent - previous) / previous * 100
	direction := TrendNeutral
	if pct > trendThresholdPct {
		direction = TrendUp
	} else if pct < -trendThresholdPct {
		direction = TrendDown
	}

	return TrendResult{Direction: direction, MagnitudePercent: math.Abs(pct)}
}

func windowAverage(days []DaySnapshot, metric Metric) float64 {
	if len(days) == 0 {
		return 0
	}
	sum := 0
	for _, d := range days {
		sum += d.Metrics.Value(metric)
	}
	return float64(sum) / float64(len(days))
}
