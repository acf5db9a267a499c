package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store"
	"fitTrackAPI/internal/user"
	"fitTrackAPI/internal/workout"
)

// Store is an in-memory implementation of the full store surface, used by
// unit tests and local development. Subscriptions have the same semantics as
// the real backends: first delivery reflects current state, teardown is
// all-or-nothing.
type Store struct {
	mu       sync.Mutex
	days     map[string]metrics.DailyMetrics // keyed by userID|date
	workouts []workout.Entry
	users    map[string]user.User

	nextSubID int
	daySubs   map[string]map[int]func(metrics.DailyMetrics)
	rangeSubs map[int]*rangeSub
}

type rangeSub struct {
	userID string
	dates  []string
	fn     func([]metrics.DaySnapshot)
}

func New() *Store {
	return &Store{
		days:      make(map[string]metrics.DailyMetrics),
		users:     make(map[string]user.User),
		daySubs:   make(map[string]map[int]func(metrics.DailyMetrics)),
		rangeSubs: make(map[int]*rangeSub),
	}
}

func dayKey(userID, date string) string {
	return userID + "|" + date
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Get(ctx context.Context, userID, date string) (*metrics.DailyMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.days[dayKey(userID, date)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &m, nil
}

func (s *Store) Merge(ctx context.Context, userID, date string, partial metrics.PartialMetrics, updatedAt time.Time) error {
	s.mu.Lock()

	key := dayKey(userID, date)
	m, ok := s.days[key]
	if !ok {
		m = metrics.DailyMetrics{UserID: userID, Date: date}
	}
	if partial.Steps != nil {
		m.Steps = *partial.Steps
	}
	if partial.Calories != nil {
		m.Calories = *partial.Calories
	}
	if partial.WaterMl != nil {
		m.WaterMl = *partial.WaterMl
	}
	if partial.WorkoutCount != nil {
		m.WorkoutCount = *partial.WorkoutCount
	}
	m.UpdatedAt = updatedAt
	s.days[key] = m

	notify := s.collectNotifications(userID, date, m)
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return nil
}

func (s *Store) GetRange(ctx context.Context, userID, startDate, endDate string) ([]metrics.DaySnapshot, error) {
	dates, err := store.DateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotRangeLocked(userID, dates), nil
}

func (s *Store) snapshotRangeLocked(userID string, dates []string) []metrics.DaySnapshot {
	days := make([]metrics.DaySnapshot, 0, len(dates))
	for _, date := range dates {
		if m, ok := s.days[dayKey(userID, date)]; ok {
			days = append(days, metrics.DaySnapshot{Date: date, Metrics: m})
		} else {
			days = append(days, store.ZeroDay(userID, date))
		}
	}
	return days
}

// collectNotifications gathers the callbacks owed for a change to one day.
// Called with the lock held; callbacks run after it is released.
func (s *Store) collectNotifications(userID, date string, m metrics.DailyMetrics) []func() {
	var notify []func()

	for _, fn := range s.daySubs[dayKey(userID, date)] {
		fn := fn
		notify = append(notify, func() { fn(m) })
	}

	for _, sub := range s.rangeSubs {
		if sub.userID != userID || !containsDate(sub.dates, date) {
			continue
		}
		sub := sub
		days := s.snapshotRangeLocked(sub.userID, sub.dates)
		notify = append(notify, func() { sub.fn(days) })
	}

	return notify
}

func containsDate(dates []string, date string) bool {
	for _, d := range dates {
		if d == date {
			return true
		}
	}
	return false
}

func (s *Store) Subscribe(ctx context.Context, userID, date string, fn func(metrics.DailyMetrics)) (store.Unsubscribe, error) {
	if _, err := store.DateRange(date, date); err != nil {
		return nil, err
	}

	s.mu.Lock()
	key := dayKey(userID, date)
	id := s.nextSubID
	s.nextSubID++
	if s.daySubs[key] == nil {
		s.daySubs[key] = make(map[int]func(metrics.DailyMetrics))
	}
	s.daySubs[key][id] = fn

	current, ok := s.days[key]
	if !ok {
		current = store.ZeroDay(userID, date).Metrics
	}
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.daySubs[key], id)
			s.mu.Unlock()
		})
	}, nil
}

func (s *Store) SubscribeRange(ctx context.Context, userID, startDate, endDate string, fn func([]metrics.DaySnapshot)) (store.Unsubscribe, error) {
	dates, err := store.DateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.rangeSubs[id] = &rangeSub{userID: userID, dates: dates, fn: fn}
	days := s.snapshotRangeLocked(userID, dates)
	s.mu.Unlock()

	fn(days)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.rangeSubs, id)
			s.mu.Unlock()
		})
	}, nil
}

// SubscriberCount reports how many listeners are live, so tests can verify
// that teardown released everything.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.rangeSubs)
	for _, subs := range s.daySubs {
		n += len(subs)
	}
	return n
}

func (s *Store) QueryTopByMetric(ctx context.Context, date string, metric metrics.Metric, limit int) ([]store.TopEntry, error) {
	s.mu.Lock()
	var entries []store.TopEntry
	for _, m := range s.days {
		if m.Date != date {
			continue
		}
		if v := m.Value(metric); v > 0 {
			entries = append(entries, store.TopEntry{UserID: m.UserID, Value: v})
		}
	}
	s.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].UserID < entries[j].UserID
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// AppendWorkout stores the entry and bumps the day's counters under the same
// lock, so the increment is atomic.
func (s *Store) AppendWorkout(ctx context.Context, entry workout.Entry) (bool, error) {
	s.mu.Lock()

	for _, w := range s.workouts {
		if w.ID == entry.ID {
			s.mu.Unlock()
			return false, fmt.Errorf("workout %s already exists", entry.ID)
		}
	}
	s.workouts = append(s.workouts, entry)

	key := dayKey(entry.UserID, entry.Date)
	m, ok := s.days[key]
	if !ok {
		m = metrics.DailyMetrics{UserID: entry.UserID, Date: entry.Date}
	}
	m.WorkoutCount++
	m.Calories += entry.CaloriesBurned
	m.UpdatedAt = entry.CreatedAt
	s.days[key] = m

	notify := s.collectNotifications(entry.UserID, entry.Date, m)
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
	return true, nil
}

func (s *Store) ListWorkouts(ctx context.Context, userID string, limit int) ([]workout.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []workout.Entry
	for _, w := range s.workouts {
		if w.UserID == userID {
			entries = append(entries, w)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[u.UID]; exists {
		return fmt.Errorf("user %s already exists", u.UID)
	}
	s.users[u.UID] = u
	return nil
}

func (s *Store) GetUser(ctx context.Context, uid string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[uid]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.UID]; !ok {
		return store.ErrNotFound
	}
	s.users[u.UID] = u
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[uid]; !ok {
		return store.ErrNotFound
	}
	delete(s.users, uid)
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].DisplayName < users[j].DisplayName })
	return users, nil
}
