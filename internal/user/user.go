package user

import "time"

// User is the normalized profile the API works with. UID comes from the auth
// provider and partitions all metric data.
type User struct {
	UID           string    `json:"uid" db:"uid"`
	Email         string    `json:"email" db:"email"`
	DisplayName   string    `json:"displayName" db:"display_name"`
	ActivityLevel string    `json:"activityLevel" db:"activity_level"`
	HeightCm      int       `json:"heightCm,omitempty" db:"height_cm"`
	WeightKg      int       `json:"weightKg,omitempty" db:"weight_kg"`
	Age           int       `json:"age,omitempty" db:"age"`
	StepGoal      int       `json:"stepGoal" db:"step_goal"`
	WaterGoalMl   int       `json:"waterGoalMl" db:"water_goal_ml"`
	CalorieGoal   int       `json:"calorieGoal" db:"calorie_goal"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Default goals applied when a profile is created without them.
const (
	DefaultStepGoal    = 10000
	DefaultWaterGoalMl = 2000
	DefaultCalorieGoal = 2200
)

type CreateUserRequest struct {
	UID           string `json:"uid" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	DisplayName   string `json:"displayName" validate:"required"`
	ActivityLevel string `json:"activityLevel,omitempty"`
}

type UpdateProfileRequest struct {
	DisplayName   string `json:"displayName,omitempty"`
	ActivityLevel string `json:"activityLevel,omitempty"`
	HeightCm      int    `json:"heightCm,omitempty"`
	WeightKg      int    `json:"weightKg,omitempty"`
	Age           int    `json:"age,omitempty"`
	StepGoal      int    `json:"stepGoal,omitempty"`
	WaterGoalMl   int    `json:"waterGoalMl,omitempty"`
	CalorieGoal   int    `json:"calorieGoal,omitempty"`
}
