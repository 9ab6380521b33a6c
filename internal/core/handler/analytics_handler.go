package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/testtube/campus-ledger/internal/core/insight"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/usecase"
)

// defaultWindow is applied when the caller does not bound the time range.
const defaultWindow = 30 * 24 * time.Hour

type AnalyticsHandler struct {
	analytics usecase.AnalyticsUsecase
	insights  usecase.InsightUsecase
	log       logger.Logger
}

func NewAnalyticsHandler(analytics usecase.AnalyticsUsecase, insights usecase.InsightUsecase, log logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, insights: insights, log: log}
}

func (h *AnalyticsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/analytics/snapshot", h.GetSnapshot).Methods("GET")
	router.HandleFunc("/api/v1/analytics/insight", h.GetInsight).Methods("GET")
}

func (h *AnalyticsHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseTimeRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := h.analytics.GetSnapshot(r.Context(), from, to)
	if err != nil {
		h.log.Error("Failed to compute snapshot", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "failed to compute snapshot")
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}

func (h *AnalyticsHandler) GetInsight(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseTimeRange(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.insights.GetInsight(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, insight.ErrGeneratorUnavailable) {
			h.log.Warn("Insight generator unavailable", logger.ErrorField("error", err))
			respondWithError(w, http.StatusBadGateway, "insight generator unavailable")
			return
		}
		h.log.Error("Failed to generate insight", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "failed to generate insight")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	from := now.Add(-defaultWindow)
	to := now

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from timestamp: %s", v)
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to timestamp: %s", v)
		}
		to = t
	}

	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("time range is empty")
	}

	return from, to, nil
}
