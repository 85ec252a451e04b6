package handler

import (
	"net/http"

	"github.com/healthtic/internal/middleware"
	"github.com/healthtic/internal/repository"
)

type HealthHandler struct {
	health *repository.HealthRepository
}

func NewHealthHandler(health *repository.HealthRepository) *HealthHandler {
	return &HealthHandler{health: health}
}

// Dashboard: 404, пока нет ни одного измерения.
func (h *HealthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.health.Dashboard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, "No health data available yet.")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *HealthHandler) Prediction(w http.ResponseWriter, r *http.Request) {
	p, err := h.health.Prediction(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, "Not enough data for a prediction.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *HealthHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.health.Alerts(r.Context(), middleware.GetUserID(r.Context())))
}
