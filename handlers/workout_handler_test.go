package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/internal/store/memory"
	"fitTrackAPI/internal/workout"
	"fitTrackAPI/services"
)

func TestAddWorkoutBumpsDailyRecord(t *testing.T) {
	st := memory.New()
	h := NewWorkoutHandler(services.NewWorkoutService(st))

	rec := httptest.NewRecorder()
	h.AddWorkout(rec, authedRequest(http.MethodPost, "/api/v1/workouts",
		`{"name": "Evening lift", "type": "strength", "durationMinutes": 45, "caloriesBurned": 250}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry workout.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.NotEmpty(t, entry.ID)
	require.Equal(t, workout.TypeStrength, entry.Type)

	today := time.Now().Format(metrics.DateLayout)
	m, err := st.Get(context.Background(), "u1", today)
	require.NoError(t, err)
	require.Equal(t, 1, m.WorkoutCount)
	require.Equal(t, 250, m.Calories)
}

func TestAddWorkoutValidation(t *testing.T) {
	h := NewWorkoutHandler(services.NewWorkoutService(memory.New()))

	cases := []string{
		`{"name": "", "type": "cardio"}`,
		`{"name": "Run", "type": "swimming"}`,
		`{"name": "Run", "type": "cardio", "durationMinutes": -1}`,
	}

	for _, body := range cases {
		rec := httptest.NewRecorder()
		h.AddWorkout(rec, authedRequest(http.MethodPost, "/api/v1/workouts", body))
		require.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestGetWorkoutsEmptyIsArrayNotNull(t *testing.T) {
	h := NewWorkoutHandler(services.NewWorkoutService(memory.New()))

	rec := httptest.NewRecorder()
	h.GetWorkouts(rec, authedRequest(http.MethodGet, "/api/v1/workouts", ""))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "[]", rec.Body.String())
}

func TestGetWorkoutsHonorsLimit(t *testing.T) {
	st := memory.New()
	svc := services.NewWorkoutService(st)
	h := NewWorkoutHandler(svc)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Append(ctx, "u1", workout.EntryInput{Name: "Run", Type: "cardio", DurationMinutes: 20})
		require.NoError(t, err)
	}

	rec := httptest.NewRecorder()
	h.GetWorkouts(rec, authedRequest(http.MethodGet, "/api/v1/workouts?limit=3", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []workout.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
}
