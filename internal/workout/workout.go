package workout

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fitTrackAPI/internal/metrics"
)

// Type categorizes a workout entry.
type Type string

const (
	TypeCardio      Type = "cardio"
	TypeStrength    Type = "strength"
	TypeFlexibility Type = "flexibility"
	TypeSports      Type = "sports"
	TypeOther       Type = "other"
)

// ParseType maps a request value onto a known workout type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeCardio, TypeStrength, TypeFlexibility, TypeSports, TypeOther:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown workout type %q", s)
}

// Entry is one append-only workout log record.
type Entry struct {
	ID              string    `json:"id" db:"id"`
	UserID          string    `json:"userId" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Type            Type      `json:"type" db:"type"`
	DurationMinutes int       `json:"durationMinutes" db:"duration_minutes"`
	CaloriesBurned  int       `json:"caloriesBurned" db:"calories_burned"`
	Date            string    `json:"date" db:"date"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

// EntryInput is the caller-supplied part of a new workout.
type EntryInput struct {
	Name            string `json:"name"`
	Type            string `json:"type"`
	DurationMinutes int    `json:"durationMinutes"`
	CaloriesBurned  int    `json:"caloriesBurned"`
}

// NewEntry validates input and mints a complete entry with a fresh ID and
// creation timestamp. Validation failures are metrics.ValidationError and
// happen before any store call.
func NewEntry(userID string, input EntryInput, now time.Time) (Entry, error) {
	if input.Name == "" {
		return Entry{}, &metrics.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if input.DurationMinutes < 0 {
		return Entry{}, &metrics.ValidationError{Field: "durationMinutes", Reason: "must not be negative"}
	}
	if input.CaloriesBurned < 0 {
		return Entry{}, &metrics.ValidationError{Field: "caloriesBurned", Reason: "must not be negative"}
	}

	t, err := ParseType(input.Type)
	if err != nil {
		return Entry{}, &metrics.ValidationError{Field: "type", Reason: err.Error()}
	}

	return Entry{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            input.Name,
		Type:            t,
		DurationMinutes: input.DurationMinutes,
		CaloriesBurned:  input.CaloriesBurned,
		Date:            now.Format(metrics.DateLayout),
		CreatedAt:       now,
	}, nil
}
