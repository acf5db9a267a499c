package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store"
	"fitTrackAPI/internal/user"
	"fitTrackAPI/internal/workout"
)

// How often polling subscriptions re-read their days. Postgres has no
// native change feed for this schema, so subscriptions poll.
const pollInterval = 2 * time.Second

// Store is the Postgres-backed MetricsStore and UserStore.
type Store struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID, date string) (*metrics.DailyMetrics, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT user_id, date, steps, calories, water_ml, workout_count, updated_at
	FROM daily_metrics
	WHERE user_id = $1 AND date = $2
	`

	m := &metrics.DailyMetrics{}
	var d time.Time
	err = s.db.QueryRow(ctx, query, userID, day).Scan(
		&m.UserID,
		&d,
		&m.Steps,
		&m.Calories,
		&m.WaterMl,
		&m.WorkoutCount,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get daily metrics: %v", store.ErrStoreUnavailable, err)
	}
	m.Date = d.Format(metrics.DateLayout)

	return m, nil
}

func (s *Store) Merge(ctx context.Context, userID, date string, partial metrics.PartialMetrics, updatedAt time.Time) error {
	day, err := parseDate(date)
	if err != nil {
		return err
	}

	// COALESCE keeps fields the partial does not carry; nil params arrive
	// as SQL NULL.
	query := `
	INSERT INTO daily_metrics (user_id, date, steps, calories, water_ml, workout_count, updated_at)
	VALUES ($1, $2, COALESCE($3, 0), COALESCE($4, 0), COALESCE($5, 0), COALESCE($6, 0), $7)
	ON CONFLICT (user_id, date)
	DO UPDATE SET
		steps = COALESCE($3, daily_metrics.steps),
		calories = COALESCE($4, daily_metrics.calories),
		water_ml = COALESCE($5, daily_metrics.water_ml),
		workout_count = COALESCE($6, daily_metrics.workout_count),
		updated_at = $7
	`

	_, err = s.db.Exec(ctx, query, userID, day,
		partial.Steps, partial.Calories, partial.WaterMl, partial.WorkoutCount, updatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to merge daily metrics: %v", store.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *Store) GetRange(ctx context.Context, userID, startDate, endDate string) ([]metrics.DaySnapshot, error) {
	dates, err := store.DateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	start, _ := parseDate(startDate)
	end, _ := parseDate(endDate)

	query := `
	SELECT user_id, date, steps, calories, water_ml, workout_count, updated_at
	FROM daily_metrics
	WHERE user_id = $1
		AND date >= $2
		AND date <= $3
	ORDER BY date
	`

	rows, err := s.db.Query(ctx, query, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch range: %v", store.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	byDate := make(map[string]metrics.DailyMetrics)
	for rows.Next() {
		var m metrics.DailyMetrics
		var d time.Time
		if err := rows.Scan(&m.UserID, &d, &m.Steps, &m.Calories, &m.WaterMl, &m.WorkoutCount, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan row: %v", store.ErrStoreUnavailable, err)
		}
		m.Date = d.Format(metrics.DateLayout)
		byDate[m.Date] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating rows: %v", store.ErrStoreUnavailable, err)
	}

	days := make([]metrics.DaySnapshot, 0, len(dates))
	for _, date := range dates {
		if m, ok := byDate[date]; ok {
			days = append(days, metrics.DaySnapshot{Date: date, Metrics: m})
		} else {
			days = append(days, store.ZeroDay(userID, date))
		}
	}

	return days, nil
}

func (s *Store) Subscribe(ctx context.Context, userID, date string, fn func(metrics.DailyMetrics)) (store.Unsubscribe, error) {
	if _, err := parseDate(date); err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var last *metrics.DailyMetrics
		deliver := func() {
			m, err := s.Get(ctx, userID, date)
			if errors.Is(err, store.ErrNotFound) {
				zero := store.ZeroDay(userID, date).Metrics
				m = &zero
			} else if err != nil {
				return
			}
			if last != nil && *last == *m {
				return
			}
			last = m
			fn(*m)
		}

		deliver()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				deliver()
			}
		}
	}()

	return closeOnce(stop), nil
}

func (s *Store) SubscribeRange(ctx context.Context, userID, startDate, endDate string, fn func([]metrics.DaySnapshot)) (store.Unsubscribe, error) {
	if _, err := store.DateRange(startDate, endDate); err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var last []metrics.DaySnapshot
		deliver := func() {
			days, err := s.GetRange(ctx, userID, startDate, endDate)
			if err != nil {
				return
			}
			if sameDays(last, days) {
				return
			}
			last = days
			fn(days)
		}

		deliver()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				deliver()
			}
		}
	}()

	return closeOnce(stop), nil
}

// Column whitelist for metric ordering; metric names never reach SQL
// directly.
var metricColumns = map[metrics.Metric]string{
	metrics.MetricSteps:    "steps",
	metrics.MetricCalories: "calories",
	metrics.MetricWater:    "water_ml",
	metrics.MetricWorkouts: "workout_count",
}

func (s *Store) QueryTopByMetric(ctx context.Context, date string, metric metrics.Metric, limit int) ([]store.TopEntry, error) {
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	column, ok := metricColumns[metric]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}

	query := fmt.Sprintf(`
	SELECT user_id, %s AS value
	FROM daily_metrics
	WHERE date = $1 AND %s > 0
	ORDER BY value DESC, user_id ASC
	LIMIT $2
	`, column, column)

	rows, err := s.db.Query(ctx, query, day, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch top entries: %v", store.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []store.TopEntry
	for rows.Next() {
		var e store.TopEntry
		if err := rows.Scan(&e.UserID, &e.Value); err != nil {
			return nil, fmt.Errorf("%w: failed to scan top entry: %v", store.ErrStoreUnavailable, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating rows: %v", store.ErrStoreUnavailable, err)
	}

	return entries, nil
}

// AppendWorkout writes the workout and bumps that day's workout_count and
// calories in one transaction, so a workout is accounted exactly once.
func (s *Store) AppendWorkout(ctx context.Context, entry workout.Entry) (bool, error) {
	day, err := parseDate(entry.Date)
	if err != nil {
		return false, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: failed to begin transaction: %v", store.ErrStoreUnavailable, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
	INSERT INTO workouts (id, user_id, name, type, duration_minutes, calories_burned, date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.UserID, entry.Name, string(entry.Type),
		entry.DurationMinutes, entry.CaloriesBurned, day, entry.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("%w: failed to insert workout: %v", store.ErrStoreUnavailable, err)
	}

	_, err = tx.Exec(ctx, `
	INSERT INTO daily_metrics (user_id, date, steps, calories, water_ml, workout_count, updated_at)
	VALUES ($1, $2, 0, $3, 0, 1, $4)
	ON CONFLICT (user_id, date)
	DO UPDATE SET
		workout_count = daily_metrics.workout_count + 1,
		calories = daily_metrics.calories + $3,
		updated_at = $4
	`, entry.UserID, day, entry.CaloriesBurned, entry.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("%w: failed to bump daily metrics: %v", store.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("%w: failed to commit workout: %v", store.ErrStoreUnavailable, err)
	}

	return true, nil
}

func (s *Store) ListWorkouts(ctx context.Context, userID string, limit int) ([]workout.Entry, error) {
	query := `
	SELECT id, user_id, name, type, duration_minutes, calories_burned, date, created_at
	FROM workouts
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch workouts: %v", store.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var entries []workout.Entry
	for rows.Next() {
		var e workout.Entry
		var t string
		var d time.Time
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &t, &e.DurationMinutes, &e.CaloriesBurned, &d, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan workout: %v", store.ErrStoreUnavailable, err)
		}
		e.Type = workout.Type(t)
		e.Date = d.Format(metrics.DateLayout)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating rows: %v", store.ErrStoreUnavailable, err)
	}

	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	query := `
	INSERT INTO users (uid, email, display_name, activity_level, height_cm, weight_kg, age,
		step_goal, water_goal_ml, calorie_goal, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.Exec(ctx, query, u.UID, u.Email, u.DisplayName, u.ActivityLevel,
		u.HeightCm, u.WeightKg, u.Age, u.StepGoal, u.WaterGoalMl, u.CalorieGoal,
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to create user: %v", store.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *Store) GetUser(ctx context.Context, uid string) (*user.User, error) {
	query := `
	SELECT uid, email, display_name, activity_level, height_cm, weight_kg, age,
		step_goal, water_goal_ml, calorie_goal, created_at, updated_at
	FROM users
	WHERE uid = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, uid).Scan(
		&u.UID,
		&u.Email,
		&u.DisplayName,
		&u.ActivityLevel,
		&u.HeightCm,
		&u.WeightKg,
		&u.Age,
		&u.StepGoal,
		&u.WaterGoalMl,
		&u.CalorieGoal,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get user: %v", store.ErrStoreUnavailable, err)
	}

	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) error {
	query := `
	UPDATE users
	SET email = $2,
		display_name = $3,
		activity_level = $4,
		height_cm = $5,
		weight_kg = $6,
		age = $7,
		step_goal = $8,
		water_goal_ml = $9,
		calorie_goal = $10,
		updated_at = NOW()
	WHERE uid = $1
	`

	result, err := s.db.Exec(ctx, query, u.UID, u.Email, u.DisplayName, u.ActivityLevel,
		u.HeightCm, u.WeightKg, u.Age, u.StepGoal, u.WaterGoalMl, u.CalorieGoal)
	if err != nil {
		return fmt.Errorf("%w: failed to update user: %v", store.ErrStoreUnavailable, err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) DeleteUser(ctx context.Context, uid string) error {
	result, err := s.db.Exec(ctx, `DELETE FROM users WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("%w: failed to delete user: %v", store.ErrStoreUnavailable, err)
	}
	if result.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	query := `
	SELECT uid, email, display_name, activity_level, height_cm, weight_kg, age,
		step_goal, water_goal_ml, calorie_goal, created_at, updated_at
	FROM users
	ORDER BY display_name
	`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch users: %v", store.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.UID, &u.Email, &u.DisplayName, &u.ActivityLevel,
			&u.HeightCm, &u.WeightKg, &u.Age, &u.StepGoal, &u.WaterGoalMl,
			&u.CalorieGoal, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan user: %v", store.ErrStoreUnavailable, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating rows: %v", store.ErrStoreUnavailable, err)
	}

	return users, nil
}

func parseDate(date string) (time.Time, error) {
	d, err := time.Parse(metrics.DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d, nil
}

func sameDays(a, b []metrics.DaySnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func closeOnce(stop chan struct{}) store.Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}
