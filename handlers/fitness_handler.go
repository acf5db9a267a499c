package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"fitTrackAPI/internal/metrics"
	"fitTrackAPI/middleware"
	"fitTrackAPI/services"
)

type FitnessHandler struct {
	fitnessService *services.FitnessService
}

func NewFitnessHandler(fitnessService *services.FitnessService) *FitnessHandler {
	return &FitnessHandler{fitnessService: fitnessService}
}

func (h *FitnessHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	dashboard, err := h.fitnessService.GetDashboard(ctx, uid)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, dashboard)
}

func (h *FitnessHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(metrics.DateLayout)
	}

	day, err := h.fitnessService.GetDay(ctx, uid, date)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, day)
}

// SaveDay merges a partial update into one day's record. Only the fields
// present in the body are written.
func (h *FitnessHandler) SaveDay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(metrics.DateLayout)
	}

	var partial metrics.PartialMetrics
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if partial.IsEmpty() {
		respondWithError(w, http.StatusBadRequest, "Update carries no fields")
		return
	}

	updated, err := h.fitnessService.SaveDaily(ctx, uid, date, partial)
	if err != nil {
		var verr *metrics.ValidationError
		if errors.As(err, &verr) {
			respondWithError(w, http.StatusBadRequest, verr.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *FitnessHandler) SaveSteps(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Steps int `json:"steps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.fitnessService.SaveSteps(ctx, uid, body.Steps)
	if err != nil {
		var verr *metrics.ValidationError
		if errors.As(err, &verr) {
			respondWithError(w, http.StatusBadRequest, verr.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *FitnessHandler) AddWater(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		AmountMl int `json:"amountMl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.fitnessService.AddWater(ctx, uid, body.AmountMl)
	if err != nil {
		var verr *metrics.ValidationError
		if errors.As(err, &verr) {
			respondWithError(w, http.StatusBadRequest, verr.Error())
			return
		}
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *FitnessHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = services.PeriodWeek
	}

	report, err := h.fitnessService.GetProgress(ctx, uid, period)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

func (h *FitnessHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	now := time.Now()
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		year = now.Year()
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		month = int(now.Month())
	}

	calendar, err := h.fitnessService.GetCalendar(ctx, uid, year, month)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, calendar)
}
