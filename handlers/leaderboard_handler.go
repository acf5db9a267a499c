package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

type LeaderboardHandler struct {
	leaderboardService *services.LeaderboardService
}

func NewLeaderboardHandler(leaderboardService *services.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetLeaderboard ranks users by one metric for today. The metric comes from
// the ?metric= query param; steps by default.
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	metricParam := r.URL.Query().Get("metric")
	if metricParam == "" {
		metricParam = string(metrics.MetricSteps)
	}
	metric, err := metrics.ParseMetric(metricParam)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 20
	}

	board, err := h.leaderboardService.GetDaily(ctx, uid, metric, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}
