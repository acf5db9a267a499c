package metrics

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates across the API and both
// store backends.
const DateLayout = "2006-01-02"

// DailyMetrics is the per-user, per-date aggregate record. At most one
// logical record exists per (UserID, Date) pair.
type DailyMetrics struct {
	UserID       string    `json:"userId" db:"user_id"`
	Date         string    `json:"date" db:"date"`
	Steps        int       `json:"steps" db:"steps"`
	Calories     int       `json:"calories" db:"calories"`
	WaterMl      int       `json:"waterMl" db:"water_ml"`
	WorkoutCount int       `json:"workoutCount" db:"workout_count"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// PartialMetrics carries a merge-write. Nil fields are left untouched in the
// target record; set fields replace the stored value (last writer wins per
// field).
type PartialMetrics struct {
	Steps        *int `json:"steps,omitempty"`
	Calories     *int `json:"calories,omitempty"`
	WaterMl      *int `json:"waterMl,omitempty"`
	WorkoutCount *int `json:"workoutCount,omitempty"`
}

// IsEmpty reports whether the partial carries no fields at all.
func (p PartialMetrics) IsEmpty() bool {
	return p.Steps == nil && p.Calories == nil && p.WaterMl == nil && p.WorkoutCount == nil
}

// DaySnapshot pairs a calendar date with the metrics recorded for it. Range
// reads return one snapshot per day, oldest first, with missing days filled
// in as all-zero records.
type DaySnapshot struct {
	Date    string       `json:"date"`
	Metrics DailyMetrics `json:"metrics"`
}

// HasActivity reports whether the day counts toward streaks and averages.
func (d DaySnapshot) HasActivity() bool {
	return d.Metrics.Steps > 0 || d.Metrics.WorkoutCount > 0
}

// Metric names a single rankable/trendable dimension of a day.
type Metric string

const (
	MetricSteps    Metric = "steps"
	MetricCalories Metric = "calories"
	MetricWater    Metric = "water"
	MetricWorkouts Metric = "workouts"
)

// ParseMetric maps a query-string value onto a known metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricSteps, MetricCalories, MetricWater, MetricWorkouts:
		return Metric(s), nil
	}
	return "", fmt.Errorf("unknown metric %q", s)
}

// Value extracts the named metric from a day's record.
func (m DailyMetrics) Value(metric Metric) int {
	switch metric {
	case MetricSteps:
		return m.Steps
	case MetricCalories:
		return m.Calories
	case MetricWater:
		return m.WaterMl
	case MetricWorkouts:
		return m.WorkoutCount
	}
	return 0
}

// ValidationError rejects bad input before it reaches a store. It is never
// retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
