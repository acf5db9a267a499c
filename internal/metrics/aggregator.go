package metrics

import (
	"math"
	"time"
)

// Average walking step length in meters, matching what the mobile client
// shows users.
const avgStepLengthM = 0.762

// Calories burned per step for the step-derived estimate.
const caloriesPerStep = 0.04

// ApplyUpdate merges a partial update into the current record for a day and
// returns the new record. Fields absent from the partial carry over from
// current; when current is nil the day starts as all zeros. UpdatedAt is set
// to now on every call. Applying the same partial twice yields the same
// record (aside from UpdatedAt).
func ApplyUpdate(current *DailyMetrics, partial PartialMetrics, userID, date string, now time.Time) (DailyMetrics, error) {
	if err := validatePartial(partial); err != nil {
		return DailyMetrics{}, err
	}

	next := DailyMetrics{UserID: userID, Date: date}
	if current != nil {
		next = *current
	}

	if partial.Steps != nil {
		next.Steps = *partial.Steps
	}
	if partial.Calories != nil {
		next.Calories = *partial.Calories
	}
	if partial.WaterMl != nil {
		next.WaterMl = *partial.WaterMl
	}
	if partial.WorkoutCount != nil {
		next.WorkoutCount = *partial.WorkoutCount
	}
	next.UpdatedAt = now

	return next, nil
}

func validatePartial(partial PartialMetrics) error {
	if partial.Steps != nil && *partial.Steps < 0 {
		return newValidationError("steps", "must not be negative")
	}
	if partial.Calories != nil && *partial.Calories < 0 {
		return newValidationError("calories", "must not be negative")
	}
	if partial.WaterMl != nil && *partial.WaterMl < 0 {
		return newValidationError("waterMl", "must not be negative")
	}
	if partial.WorkoutCount != nil && *partial.WorkoutCount < 0 {
		return newValidationError("workoutCount", "must not be negative")
	}
	return nil
}

// DeriveDistanceKm converts a step count into kilometers walked. Full
// precision; use RoundKm for display.
func DeriveDistanceKm(steps int) float64 {
	return float64(steps) * avgStepLengthM / 1000
}

// RoundKm rounds a distance to one decimal for display.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

// DeriveStepCalories estimates calories burned from walking alone.
func DeriveStepCalories(steps int) int {
	return int(math.Round(float64(steps) * caloriesPerStep))
}

// ApplyWorkout returns the day's record with one more workout and the
// workout's calories added. The caller must have read current immediately
// before writing the result back; see WorkoutService.Append for the
// read-modify-write protocol.
func ApplyWorkout(current *DailyMetrics, caloriesBurned int, userID, date string, now time.Time) DailyMetrics {
	next := DailyMetrics{UserID: userID, Date: date}
	if current != nil {
		next = *current
	}
	next.WorkoutCount++
	next.Calories += caloriesBurned
	next.UpdatedAt = now
	return next
}
