package metrics

// Workouts are weighted so that a workout day outranks a high step count
// when picking the best day of a range.
const bestDayWorkoutWeight = 1000

// RangeSummary folds a contiguous date range into totals, averages, the best
// day and the current streak. It is derived on demand and never persisted.
type RangeSummary struct {
	TotalSteps       int          `json:"totalSteps"`
	TotalCalories    int          `json:"totalCalories"`
	TotalWaterMl     int          `json:"totalWaterMl"`
	TotalWorkouts    int          `json:"totalWorkouts"`
	DaysWithActivity int          `json:"daysWithActivity"`
	AvgSteps         int          `json:"avgSteps"`
	AvgCalories      int          `json:"avgCalories"`
	BestDay          *DaySnapshot `json:"bestDay,omitempty"`
	CurrentStreak    int          `json:"currentStreak"`
	TotalDistanceKm  float64      `json:"totalDistanceKm"`
}

// Summarize computes the range summary for days ordered oldest to newest,
// one snapshot per date with gaps already filled as zero records.
//
// Averages divide by the number of days with activity, not the range length,
// and are zero when no day had activity. The best day maximizes
// steps + workouts*1000 with the earliest date winning ties. The streak
// counts consecutive active days back from the newest day only; gaps earlier
// in the range do not affect it.
func Summarize(days []DaySnapshot) RangeSummary {
	var s RangeSummary
	if len(days) == 0 {
		return s
	}

	for _, d := range days {
		s.TotalSteps += d.Metrics.Steps
		s.TotalCalories += d.Metrics.Calories
		s.TotalWaterMl += d.Metrics.WaterMl
		s.TotalWorkouts += d.Metrics.WorkoutCount
		if d.HasActivity() {
			s.DaysWithActivity++
		}
	}

	if s.DaysWithActivity > 0 {
		s.AvgSteps = s.TotalSteps / s.DaysWithActivity
		s.AvgCalories = s.TotalCalories / s.DaysWithActivity
	}

	best := days[0]
	bestScore := bestDayScore(best)
	for _, d := range days[1:] {
		if score := bestDayScore(d); score > bestScore {
			best = d
			bestScore = score
		}
	}
	s.BestDay = &best

	for i := len(days) - 1; i >= 0; i-- {
		if !days[i].HasActivity() {
			break
		}
		s.CurrentStreak++
	}

	s.TotalDistanceKm = DeriveDistanceKm(s.TotalSteps)

	return s
}

func bestDayScore(d DaySnapshot) int {
	return d.Metrics.Steps + d.Metrics.WorkoutCount*bestDayWorkoutWeight
}
