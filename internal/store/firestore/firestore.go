package firestore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store"
	"fitTrackAPI/internal/user"
	"fitTrackAPI/internal/workout"
)

const (
	metricsCollection  = "daily_metrics"
	workoutsCollection = "workouts"
	usersCollection    = "users"
)

// Store is the Firestore-backed MetricsStore and UserStore. Document and
// field names match what the mobile client wrote, so both can share a
// project: daily metrics live at daily_metrics/{uid}_{date} with fields
// steps/calories/water/workouts.
type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// dailyDoc is the Firestore shape of a daily metrics record.
type dailyDoc struct {
	UID       string    `firestore:"uid"`
	Date      string    `firestore:"date"`
	Steps     int       `firestore:"steps"`
	Calories  int       `firestore:"calories"`
	Water     int       `firestore:"water"`
	Workouts  int       `firestore:"workouts"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (d dailyDoc) toMetrics() metrics.DailyMetrics {
	return metrics.DailyMetrics{
		UserID:       d.UID,
		Date:         d.Date,
		Steps:        d.Steps,
		Calories:     d.Calories,
		WaterMl:      d.Water,
		WorkoutCount: d.Workouts,
		UpdatedAt:    d.UpdatedAt,
	}
}

type workoutDoc struct {
	UID       string    `firestore:"uid"`
	Name      string    `firestore:"name"`
	Type      string    `firestore:"type"`
	Duration  int       `firestore:"duration"`
	Calories  int       `firestore:"calories"`
	Date      string    `firestore:"date"`
	CreatedAt time.Time `firestore:"createdAt"`
}

type userDoc struct {
	UID           string    `firestore:"uid"`
	Email         string    `firestore:"email"`
	Name          string    `firestore:"name"`
	ActivityLevel string    `firestore:"activityLevel"`
	HeightCm      int       `firestore:"height"`
	WeightKg      int       `firestore:"weight"`
	Age           int       `firestore:"age"`
	StepGoal      int       `firestore:"stepGoal"`
	WaterGoal     int       `firestore:"waterGoal"`
	CalorieGoal   int       `firestore:"calorieGoal"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func dailyDocID(userID, date string) string {
	return fmt.Sprintf("%s_%s", userID, date)
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(metricsCollection).Doc("_health").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, userID, date string) (*metrics.DailyMetrics, error) {
	snap, err := s.client.Collection(metricsCollection).Doc(dailyDocID(userID, date)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get daily metrics: %v", store.ErrStoreUnavailable, err)
	}

	var doc dailyDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode daily metrics: %v", store.ErrStoreUnavailable, err)
	}

	m := doc.toMetrics()
	return &m, nil
}

// Merge writes only the fields the partial carries, using Firestore's merge
// semantics so concurrent partials to different fields never clobber each
// other.
func (s *Store) Merge(ctx context.Context, userID, date string, partial metrics.PartialMetrics, updatedAt time.Time) error {
	fields := map[string]interface{}{
		"uid":       userID,
		"date":      date,
		"updatedAt": updatedAt,
	}
	if partial.Steps != nil {
		fields["steps"] = *partial.Steps
	}
	if partial.Calories != nil {
		fields["calories"] = *partial.Calories
	}
	if partial.WaterMl != nil {
		fields["water"] = *partial.WaterMl
	}
	if partial.WorkoutCount != nil {
		fields["workouts"] = *partial.WorkoutCount
	}

	ref := s.client.Collection(metricsCollection).Doc(dailyDocID(userID, date))
	if _, err := ref.Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("%w: failed to merge daily metrics: %v", store.ErrStoreUnavailable, err)
	}

	return nil
}

func (s *Store) GetRange(ctx context.Context, userID, startDate, endDate string) ([]metrics.DaySnapshot, error) {
	dates, err := store.DateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	refs := make([]*firestore.DocumentRef, 0, len(dates))
	for _, date := range dates {
		refs = append(refs, s.client.Collection(metricsCollection).Doc(dailyDocID(userID, date)))
	}

	snaps, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch range: %v", store.ErrStoreUnavailable, err)
	}

	days := make([]metrics.DaySnapshot, 0, len(dates))
	for i, snap := range snaps {
		if !snap.Exists() {
			days = append(days, store.ZeroDay(userID, dates[i]))
			continue
		}
		var doc dailyDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("%w: failed to decode daily metrics: %v", store.ErrStoreUnavailable, err)
		}
		days = append(days, metrics.DaySnapshot{Date: dates[i], Metrics: doc.toMetrics()})
	}

	return days, nil
}

func (s *Store) Subscribe(ctx context.Context, userID, date string, fn func(metrics.DailyMetrics)) (store.Unsubscribe, error) {
	if _, err := store.DateRange(date, date); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	ref := s.client.Collection(metricsCollection).Doc(dailyDocID(userID, date))

	go func() {
		iter := ref.Snapshots(subCtx)
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				return
			}
			if !snap.Exists() {
				fn(store.ZeroDay(userID, date).Metrics)
				continue
			}
			var doc dailyDoc
			if err := snap.DataTo(&doc); err != nil {
				continue
			}
			fn(doc.toMetrics())
		}
	}()

	return unsubscribeOnce(cancel), nil
}

// SubscribeRange attaches one snapshot listener per day, exactly as the
// mobile client did, but all listeners share a single cancel so teardown is
// all-or-nothing. The callback fires with the whole gap-filled range once
// every day has reported at least once, then again on every change.
func (s *Store) SubscribeRange(ctx context.Context, userID, startDate, endDate string, fn func([]metrics.DaySnapshot)) (store.Unsubscribe, error) {
	dates, err := store.DateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)

	var mu sync.Mutex
	byDate := make(map[string]metrics.DailyMetrics, len(dates))
	loaded := 0

	deliver := func() {
		if loaded < len(dates) {
			return
		}
		days := make([]metrics.DaySnapshot, 0, len(dates))
		for _, date := range dates {
			days = append(days, metrics.DaySnapshot{Date: date, Metrics: byDate[date]})
		}
		fn(days)
	}

	for _, date := range dates {
		date := date
		ref := s.client.Collection(metricsCollection).Doc(dailyDocID(userID, date))
		go func() {
			iter := ref.Snapshots(subCtx)
			defer iter.Stop()
			for {
				snap, err := iter.Next()
				if err != nil {
					return
				}

				m := store.ZeroDay(userID, date).Metrics
				if snap.Exists() {
					var doc dailyDoc
					if err := snap.DataTo(&doc); err == nil {
						m = doc.toMetrics()
					}
				}

				mu.Lock()
				if _, seen := byDate[date]; !seen {
					loaded++
				}
				byDate[date] = m
				deliver()
				mu.Unlock()
			}
		}()
	}

	return unsubscribeOnce(cancel), nil
}

func (s *Store) QueryTopByMetric(ctx context.Context, date string, metric metrics.Metric, limit int) ([]store.TopEntry, error) {
	field, ok := map[metrics.Metric]string{
		metrics.MetricSteps:    "steps",
		metrics.MetricCalories: "calories",
		metrics.MetricWater:    "water",
		metrics.MetricWorkouts: "workouts",
	}[metric]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}

	query := s.client.Collection(metricsCollection).
		Where("date", "==", date).
		OrderBy(field, firestore.Desc).
		Limit(limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var entries []store.TopEntry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to query leaderboard: %v", store.ErrStoreUnavailable, err)
		}

		var doc dailyDoc
		if err := snap.DataTo(&doc); err != nil {
			continue
		}
		value := doc.toMetrics().Value(metric)
		if value <= 0 {
			continue
		}
		entries = append(entries, store.TopEntry{UserID: doc.UID, Value: value})
	}

	return entries, nil
}

// AppendWorkout only writes the workout document. Firestore merge-writes
// cannot bump the daily counters in the same call, so the service reconciles
// the daily record with a read-modify-write.
func (s *Store) AppendWorkout(ctx context.Context, entry workout.Entry) (bool, error) {
	doc := workoutDoc{
		UID:       entry.UserID,
		Name:      entry.Name,
		Type:      string(entry.Type),
		Duration:  entry.DurationMinutes,
		Calories:  entry.CaloriesBurned,
		Date:      entry.Date,
		CreatedAt: entry.CreatedAt,
	}

	ref := s.client.Collection(workoutsCollection).Doc(entry.ID)
	if _, err := ref.Create(ctx, doc); err != nil {
		return false, fmt.Errorf("%w: failed to append workout: %v", store.ErrStoreUnavailable, err)
	}

	return false, nil
}

func (s *Store) ListWorkouts(ctx context.Context, userID string, limit int) ([]workout.Entry, error) {
	query := s.client.Collection(workoutsCollection).
		Where("uid", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var entries []workout.Entry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list workouts: %v", store.ErrStoreUnavailable, err)
		}

		var doc workoutDoc
		if err := snap.DataTo(&doc); err != nil {
			continue
		}
		entries = append(entries, workout.Entry{
			ID:              snap.Ref.ID,
			UserID:          doc.UID,
			Name:            doc.Name,
			Type:            workout.Type(doc.Type),
			DurationMinutes: doc.Duration,
			CaloriesBurned:  doc.Calories,
			Date:            doc.Date,
			CreatedAt:       doc.CreatedAt,
		})
	}

	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	ref := s.client.Collection(usersCollection).Doc(u.UID)
	if _, err := ref.Set(ctx, toUserDoc(u)); err != nil {
		return fmt.Errorf("%w: failed to create user: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, uid string) (*user.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: failed to get user: %v", store.ErrStoreUnavailable, err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode user: %v", store.ErrStoreUnavailable, err)
	}

	u := fromUserDoc(doc)
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) error {
	ref := s.client.Collection(usersCollection).Doc(u.UID)
	if _, err := ref.Set(ctx, toUserDoc(u), firestore.MergeAll); err != nil {
		return fmt.Errorf("%w: failed to update user: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, uid string) error {
	if _, err := s.client.Collection(usersCollection).Doc(uid).Delete(ctx); err != nil {
		return fmt.Errorf("%w: failed to delete user: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	iter := s.client.Collection(usersCollection).Documents(ctx)
	defer iter.Stop()

	var users []user.User
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list users: %v", store.ErrStoreUnavailable, err)
		}

		var doc userDoc
		if err := snap.DataTo(&doc); err != nil {
			continue
		}
		users = append(users, fromUserDoc(doc))
	}

	return users, nil
}

func toUserDoc(u user.User) userDoc {
	return userDoc{
		UID:           u.UID,
		Email:         u.Email,
		Name:          u.DisplayName,
		ActivityLevel: u.ActivityLevel,
		HeightCm:      u.HeightCm,
		WeightKg:      u.WeightKg,
		Age:           u.Age,
		StepGoal:      u.StepGoal,
		WaterGoal:     u.WaterGoalMl,
		CalorieGoal:   u.CalorieGoal,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func fromUserDoc(d userDoc) user.User {
	return user.User{
		UID:           d.UID,
		Email:         d.Email,
		DisplayName:   d.Name,
		ActivityLevel: d.ActivityLevel,
		HeightCm:      d.HeightCm,
		WeightKg:      d.WeightKg,
		Age:           d.Age,
		StepGoal:      d.StepGoal,
		WaterGoalMl:   d.WaterGoal,
		CalorieGoal:   d.CalorieGoal,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func unsubscribeOnce(cancel context.CancelFunc) store.Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(cancel)
	}
}
