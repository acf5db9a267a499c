package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fitTrackAPI/internal/store"
	"fitTrackAPI/internal/user"
)

// UserService manages normalized profiles. The auth provider owns identity;
// this layer only keeps the profile document the metrics engine hydrates
// display names and goals from.
type UserService struct {
	store store.Store
	now   func() time.Time
}

func NewUserService(st store.Store) *UserService {
	return &UserService{store: st, now: time.Now}
}

// CreateUser provisions a profile with default goals. Called on first sign
// in (or from the auth provider's user.created webhook).
func (s *UserService) CreateUser(ctx context.Context, req *user.CreateUserRequest) (*user.User, error) {
	if req.UID == "" {
		return nil, fmt.Errorf("uid is required")
	}

	now := s.now()
	u := user.User{
		UID:           req.UID,
		Email:         req.Email,
		DisplayName:   req.DisplayName,
		ActivityLevel: req.ActivityLevel,
		StepGoal:      user.DefaultStepGoal,
		WaterGoalMl:   user.DefaultWaterGoalMl,
		CalorieGoal:   user.DefaultCalorieGoal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if u.ActivityLevel == "" {
		u.ActivityLevel = "moderately_active"
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &u, nil
}

func (s *UserService) GetUser(ctx context.Context, uid string) (*user.User, error) {
	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateProfile applies the non-zero fields of the request over the stored
// profile.
func (s *UserService) UpdateProfile(ctx context.Context, uid string, req *user.UpdateProfileRequest) (*user.User, error) {
	u, err := s.store.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.DisplayName != "" {
		u.DisplayName = req.DisplayName
	}
	if req.ActivityLevel != "" {
		u.ActivityLevel = req.ActivityLevel
	}
	if req.HeightCm != 0 {
		u.HeightCm = req.HeightCm
	}
	if req.WeightKg != 0 {
		u.WeightKg = req.WeightKg
	}
	if req.Age != 0 {
		u.Age = req.Age
	}
	if req.StepGoal != 0 {
		u.StepGoal = req.StepGoal
	}
	if req.WaterGoalMl != 0 {
		u.WaterGoalMl = req.WaterGoalMl
	}
	if req.CalorieGoal != 0 {
		u.CalorieGoal = req.CalorieGoal
	}
	u.UpdatedAt = s.now()

	if err := s.store.UpdateUser(ctx, *u); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return u, nil
}

func (s *UserService) DeleteUser(ctx context.Context, uid string) error {
	if err := s.store.DeleteUser(ctx, uid); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user not found")
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}
