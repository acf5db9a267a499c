package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/user"
	"fitTrackAPI/internal/workout"
)

var (
	// ErrNotFound means the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStoreUnavailable wraps backend/network failures. Callers decide
	// whether to retry or fall back; the store never retries on its own.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Unsubscribe tears down a subscription. It stops all further callbacks and
// releases every per-day listener the subscription holds; partial teardown
// is a defect. Safe to call more than once.
type Unsubscribe func()

// TopEntry is one row of a top-by-metric query before ranking.
type TopEntry struct {
	UserID string `json:"userId"`
	Value  int    `json:"value"`
}

// MetricsStore is the persistence boundary for daily metrics and workouts.
// Implementations must apply writes to the same (userID, date) key in
// submission order and make Merge all-or-nothing per call.
type MetricsStore interface {
	// Get returns the record for one day, or ErrNotFound.
	Get(ctx context.Context, userID, date string) (*metrics.DailyMetrics, error)

	// Merge applies a partial update to one day, overwriting only the
	// fields the partial carries. The day record is created if absent.
	Merge(ctx context.Context, userID, date string, partial metrics.PartialMetrics, updatedAt time.Time) error

	// GetRange returns one snapshot per day in [startDate, endDate]
	// inclusive, oldest first, with missing days filled as zero records.
	GetRange(ctx context.Context, userID, startDate, endDate string) ([]metrics.DaySnapshot, error)

	// Subscribe delivers the day's record on every change until
	// unsubscribed. The first delivery reflects the current state.
	Subscribe(ctx context.Context, userID, date string, fn func(metrics.DailyMetrics)) (Unsubscribe, error)

	// SubscribeRange delivers the full gap-filled range on every change to
	// any day inside it.
	SubscribeRange(ctx context.Context, userID, startDate, endDate string, fn func([]metrics.DaySnapshot)) (Unsubscribe, error)

	// QueryTopByMetric returns up to limit users ordered by the metric's
	// value for the given date, highest first.
	QueryTopByMetric(ctx context.Context, date string, metric metrics.Metric, limit int) ([]TopEntry, error)

	// AppendWorkout persists one workout entry. Implementations that can do
	// so atomically also bump the day's workoutCount and calories and
	// return bumped=true; otherwise the caller reconciles the daily record
	// itself.
	AppendWorkout(ctx context.Context, entry workout.Entry) (bumped bool, err error)

	// ListWorkouts returns the user's most recent workouts, newest first.
	ListWorkouts(ctx context.Context, userID string, limit int) ([]workout.Entry, error)
}

// UserStore persists normalized user profiles keyed by auth-provider UID.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) error
	GetUser(ctx context.Context, uid string) (*user.User, error)
	UpdateUser(ctx context.Context, u user.User) error
	DeleteUser(ctx context.Context, uid string) error
	ListUsers(ctx context.Context) ([]user.User, error)
}

// Store is what a backend must provide in full.
type Store interface {
	MetricsStore
	UserStore

	// Ping reports backend health for the /health endpoint.
	Ping(ctx context.Context) error
}

// DateRange expands [startDate, endDate] inclusive into its individual days.
func DateRange(startDate, endDate string) ([]string, error) {
	start, err := time.Parse(metrics.DateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse(metrics.DateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s", endDate, startDate)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(metrics.DateLayout))
	}
	return dates, nil
}

// ZeroDay builds the all-zero record used to fill gaps in a range.
func ZeroDay(userID, date string) metrics.DaySnapshot {
	return metrics.DaySnapshot{
		Date:    date,
		Metrics: metrics.DailyMetrics{UserID: userID, Date: date},
	}
}
