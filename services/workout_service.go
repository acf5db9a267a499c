package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store"
	"fitTrackAPI/internal/workout"
)

// How many times the reconcile path re-reads before giving up. Exceeding
// this is logged as a lost-update discrepancy, not a request failure.
const workoutBumpRetries = 3

// WorkoutService owns the append-only workout log and keeps the daily
// aggregate in step with it: every appended workout must bump that day's
// workoutCount and calories exactly once.
type WorkoutService struct {
	store store.Store
	now   func() time.Time
}

func NewWorkoutService(st store.Store) *WorkoutService {
	return &WorkoutService{store: st, now: time.Now}
}

// Append validates and persists one workout. Validation failures surface
// before any store call and leave the log unchanged.
//
// When the store bumps the daily aggregate atomically we are done. Otherwise
// the bump is reconciled with a read-modify-write: read the freshest record
// immediately before writing the incremented values back. Concurrent writers
// can still race under last-writer-wins merge semantics; the retry loop
// verifies the bump landed and logs the discrepancy when it did not.
func (s *WorkoutService) Append(ctx context.Context, userID string, input workout.EntryInput) (*workout.Entry, error) {
	entry, err := workout.NewEntry(userID, input, s.now())
	if err != nil {
		return nil, err
	}

	bumped, err := s.store.AppendWorkout(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to append workout: %w", err)
	}

	if !bumped {
		if err := s.bumpDay(ctx, entry); err != nil {
			return nil, err
		}
	}

	return &entry, nil
}

func (s *WorkoutService) bumpDay(ctx context.Context, entry workout.Entry) error {
	for attempt := 0; attempt < workoutBumpRetries; attempt++ {
		current, err := s.store.Get(ctx, entry.UserID, entry.Date)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to read day before bump: %w", err)
		}
		if errors.Is(err, store.ErrNotFound) {
			current = nil
		}

		next := metrics.ApplyWorkout(current, entry.CaloriesBurned, entry.UserID, entry.Date, s.now())
		partial := metrics.PartialMetrics{
			WorkoutCount: &next.WorkoutCount,
			Calories:     &next.Calories,
		}
		if err := s.store.Merge(ctx, entry.UserID, entry.Date, partial, next.UpdatedAt); err != nil {
			return fmt.Errorf("failed to bump daily metrics: %w", err)
		}

		after, err := s.store.Get(ctx, entry.UserID, entry.Date)
		if err != nil {
			return fmt.Errorf("failed to verify bump: %w", err)
		}
		if after.WorkoutCount >= next.WorkoutCount {
			return nil
		}
		// Another writer overwrote the counters between our read and
		// write; take the freshest state and try again.
	}

	log.Printf("workout %s: daily bump lost to concurrent writers after %d attempts (user=%s date=%s)",
		entry.ID, workoutBumpRetries, entry.UserID, entry.Date)
	return nil
}

// Recent returns the user's latest workouts, newest first, at most n.
// Callers page by re-querying with a larger n.
func (s *WorkoutService) Recent(ctx context.Context, userID string, n int) ([]workout.Entry, error) {
	if n <= 0 {
		n = 20
	}

	entries, err := s.store.ListWorkouts(ctx, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to list workouts: %w", err)
	}

	return entries, nil
}
