package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store"
)

// Period selects how far back a progress report reaches.
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// ProgressReport is what the progress screen renders: the raw days, the
// folded summary and a per-metric trend.
type ProgressReport struct {
	Period    string                                `json:"period"`
	StartDate string                                `json:"startDate"`
	EndDate   string                                `json:"endDate"`
	Days      []metrics.DaySnapshot                 `json:"days"`
	Summary   metrics.RangeSummary                  `json:"summary"`
	Trends    map[metrics.Metric]metrics.TrendResult `json:"trends"`
}

// Dashboard is the home-screen payload for a single day.
type Dashboard struct {
	Metrics      metrics.DailyMetrics `json:"metrics"`
	DistanceKm   float64              `json:"distanceKm"`
	StepCalories int                  `json:"stepCalories"`
}

// CalendarDay mirrors what the month view renders per day.
type CalendarDay struct {
	Date    string `json:"date"`
	Active  bool   `json:"active"`
	IsToday bool   `json:"is_today"`
}

type CalendarResponse struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Days  []*CalendarDay `json:"days"`
}

// FitnessService orchestrates daily metric reads and merge-writes. All
// aggregation is done by the pure functions in internal/metrics; this layer
// only talks to the store.
type FitnessService struct {
	store store.Store
	now   func() time.Time
}

func NewFitnessService(st store.Store) *FitnessService {
	return &FitnessService{store: st, now: time.Now}
}

// GetDay returns the record for a date, as all-zero when nothing was written
// yet.
func (s *FitnessService) GetDay(ctx context.Context, userID, date string) (*metrics.DailyMetrics, error) {
	m, err := s.store.Get(ctx, userID, date)
	if errors.Is(err, store.ErrNotFound) {
		zero := store.ZeroDay(userID, date).Metrics
		return &zero, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get day: %w", err)
	}
	return m, nil
}

// EnsureToday creates today's all-zero record if the user has none yet,
// called on first login of the day.
func (s *FitnessService) EnsureToday(ctx context.Context, userID string) error {
	today := s.today()
	_, err := s.store.Get(ctx, userID, today)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to check today's record: %w", err)
	}

	zero := 0
	partial := metrics.PartialMetrics{Steps: &zero, Calories: &zero, WaterMl: &zero, WorkoutCount: &zero}
	if err := s.store.Merge(ctx, userID, today, partial, s.now()); err != nil {
		return fmt.Errorf("failed to initialize today's record: %w", err)
	}
	return nil
}

// SaveDaily merges a partial update into one day and returns the resulting
// record. Validation happens before the store is touched.
func (s *FitnessService) SaveDaily(ctx context.Context, userID, date string, partial metrics.PartialMetrics) (*metrics.DailyMetrics, error) {
	current, err := s.store.Get(ctx, userID, date)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to read current record: %w", err)
	}

	next, err := metrics.ApplyUpdate(current, partial, userID, date, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.Merge(ctx, userID, date, partial, next.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to merge daily metrics: %w", err)
	}

	return &next, nil
}

// SaveSteps writes an absolute step count for today together with its
// derived calorie estimate, the way the step counter screen reports.
func (s *FitnessService) SaveSteps(ctx context.Context, userID string, steps int) (*metrics.DailyMetrics, error) {
	calories := metrics.DeriveStepCalories(steps)
	partial := metrics.PartialMetrics{Steps: &steps, Calories: &calories}
	return s.SaveDaily(ctx, userID, s.today(), partial)
}

// AddWater adds an amount to today's water intake. Read-before-write keeps
// quick-add taps from clobbering each other within a session.
func (s *FitnessService) AddWater(ctx context.Context, userID string, amountMl int) (*metrics.DailyMetrics, error) {
	if amountMl < 0 {
		return nil, &metrics.ValidationError{Field: "amountMl", Reason: "must not be negative"}
	}

	today := s.today()
	current, err := s.GetDay(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	total := current.WaterMl + amountMl
	partial := metrics.PartialMetrics{WaterMl: &total}
	return s.SaveDaily(ctx, userID, today, partial)
}

// GetDashboard returns today's record plus the derived display values.
func (s *FitnessService) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	m, err := s.GetDay(ctx, userID, s.today())
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Metrics:      *m,
		DistanceKm:   metrics.RoundKm(metrics.DeriveDistanceKm(m.Steps)),
		StepCalories: metrics.DeriveStepCalories(m.Steps),
	}, nil
}

// GetProgress folds the trailing week or month into a summary and trends.
func (s *FitnessService) GetProgress(ctx context.Context, userID, period string) (*ProgressReport, error) {
	days := 7
	switch period {
	case PeriodWeek:
	case PeriodMonth:
		days = 30
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}

	end := s.now()
	start := end.AddDate(0, 0, -days)
	startDate := start.Format(metrics.DateLayout)
	endDate := end.Format(metrics.DateLayout)

	snapshots, err := s.store.GetRange(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch progress range: %w", err)
	}

	report := &ProgressReport{
		Period:    period,
		StartDate: startDate,
		EndDate:   endDate,
		Days:      snapshots,
		Summary:   metrics.Summarize(snapshots),
		Trends: map[metrics.Metric]metrics.TrendResult{
			metrics.MetricSteps:    metrics.Trend(snapshots, metrics.MetricSteps),
			metrics.MetricCalories: metrics.Trend(snapshots, metrics.MetricCalories),
			metrics.MetricWorkouts: metrics.Trend(snapshots, metrics.MetricWorkouts),
		},
	}

	return report, nil
}

// WatchProgress is the live version of GetProgress: the callback fires with
// a fresh report whenever any day in the window changes. The returned
// unsubscribe tears down every underlying listener at once; callers toggling
// the period must unsubscribe fully before subscribing again.
func (s *FitnessService) WatchProgress(ctx context.Context, userID, period string, fn func(*ProgressReport)) (store.Unsubscribe, error) {
	days := 7
	switch period {
	case PeriodWeek:
	case PeriodMonth:
		days = 30
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}

	end := s.now()
	start := end.AddDate(0, 0, -days)
	startDate := start.Format(metrics.DateLayout)
	endDate := end.Format(metrics.DateLayout)

	return s.store.SubscribeRange(ctx, userID, startDate, endDate, func(snapshots []metrics.DaySnapshot) {
		fn(&ProgressReport{
			Period:    period,
			StartDate: startDate,
			EndDate:   endDate,
			Days:      snapshots,
			Summary:   metrics.Summarize(snapshots),
			Trends: map[metrics.Metric]metrics.TrendResult{
				metrics.MetricSteps:    metrics.Trend(snapshots, metrics.MetricSteps),
				metrics.MetricCalories: metrics.Trend(snapshots, metrics.MetricCalories),
				metrics.MetricWorkouts: metrics.Trend(snapshots, metrics.MetricWorkouts),
			},
		})
	})
}

// GetCalendar marks which days of a month had activity.
func (s *FitnessService) GetCalendar(ctx context.Context, userID string, year, month int) (*CalendarResponse, error) {
	startDate := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	endDate := startDate.AddDate(0, 1, -1)

	snapshots, err := s.store.GetRange(ctx, userID,
		startDate.Format(metrics.DateLayout), endDate.Format(metrics.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar: %w", err)
	}

	today := s.today()
	var days []*CalendarDay
	for _, snap := range snapshots {
		days = append(days, &CalendarDay{
			Date:    snap.Date,
			Active:  snap.HasActivity(),
			IsToday: snap.Date == today,
		})
	}

	return &CalendarResponse{Year: year, Month: month, Days: days}, nil
}

func (s *FitnessService) today() string {
	return s.now().Format(metrics.DateLayout)
}
