package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fitTrackAPI/internal/cache"
	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store"
)

const (
	defaultLeaderboardLimit = 20
	leaderboardCacheTTL     = 30 * time.Second
)

// LeaderboardService ranks users by a single metric for a single day. The
// top query and name hydration can be fronted by a short-TTL Redis cache;
// ranking itself is recomputed per request because the requesting user's
// position depends on who asks.
type LeaderboardService struct {
	store store.Store
	cache *cache.Cache
	now   func() time.Time
}

func NewLeaderboardService(st store.Store, c *cache.Cache) *LeaderboardService {
	return &LeaderboardService{store: st, cache: c, now: time.Now}
}

// GetDaily returns today's leaderboard for one metric, with the requesting
// user's rank located in it (nil position when they have no activity).
func (s *LeaderboardService) GetDaily(ctx context.Context, requestingUserID string, metric metrics.Metric, limit int) (*metrics.Leaderboard, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}

	date := s.now().Format(metrics.DateLayout)

	inputs, err := s.rankInputs(ctx, date, metric, limit)
	if err != nil {
		return nil, err
	}

	return metrics.Rank(inputs, requestingUserID), nil
}

func (s *LeaderboardService) rankInputs(ctx context.Context, date string, metric metrics.Metric, limit int) ([]metrics.RankInput, error) {
	key := fmt.Sprintf("leaderboard:%s:%s:%d", date, metric, limit)

	var cached []metrics.RankInput
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		log.Printf("leaderboard cache read failed: %v", err)
	}

	top, err := s.store.QueryTopByMetric(ctx, date, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}

	inputs := make([]metrics.RankInput, 0, len(top))
	for _, entry := range top {
		name := "Anonymous"
		if u, err := s.store.GetUser(ctx, entry.UserID); err == nil && u.DisplayName != "" {
			name = u.DisplayName
		}
		inputs = append(inputs, metrics.RankInput{
			UserID:      entry.UserID,
			DisplayName: name,
			Value:       entry.Value,
		})
	}

	if err := s.cache.Set(ctx, key, inputs, leaderboardCacheTTL); err != nil {
		log.Printf("leaderboard cache write failed: %v", err)
	}

	return inputs, nil
}
