package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthtic/internal/middleware"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/repository"
)

type DeviceHandler struct {
	devices *repository.DeviceRepository
	users   *repository.UserRepository
	health  *repository.HealthRepository
}

func NewDeviceHandler(devices *repository.DeviceRepository, users *repository.UserRepository, health *repository.HealthRepository) *DeviceHandler {
	return &DeviceHandler{devices: devices, users: users, health: health}
}

type createDeviceBody struct {
	Name string `json:"name" validate:"notblank,max=100"`
}

type updateDeviceBody struct {
	Name     *string `json:"name" validate:"omitempty,notblank,max=100"`
	IsActive *bool   `json:"is_active"`
}

// patientOnly пропускает только пациентов; врачам устройства недоступны.
func (h *DeviceHandler) patientOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		acc, err := h.users.GetByID(r.Context(), middleware.GetUserID(r.Context()))
		if err != nil || acc.Role != model.RolePatient {
			writeError(w, http.StatusForbidden, "Only patients can manage devices.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.devices.ListByOwner(r.Context(), middleware.GetUserID(r.Context())))
}

func (h *DeviceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDeviceBody
	if !decodeBody(w, r, &req) {
		return
	}
	dev := h.devices.Create(r.Context(), middleware.GetUserID(r.Context()), req.Name)
	writeJSON(w, http.StatusCreated, dev)
}

func (h *DeviceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateDeviceBody
	if !decodeBody(w, r, &req) {
		return
	}
	upd := model.DeviceUpdate{Name: req.Name, IsActive: req.IsActive}
	dev, err := h.devices.Update(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.devices.Delete(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeviceHandler) RegenerateKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.devices.RegenerateKey(r.Context(), middleware.GetUserID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"device_key": key})
}

// Ingest: POST /api/devices/data/ с заголовком X-Device-Key. Токен пользователя не нужен.
func (h *DeviceHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Device-Key")
	if key == "" {
		writeError(w, http.StatusUnauthorized, "device key required")
		return
	}
	owner, dev, err := h.devices.ByKey(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown or inactive device")
		return
	}
	var m model.Measurement
	if !decodeBody(w, r, &m) {
		return
	}
	if m.TakenAt.IsZero() {
		m.TakenAt = time.Now().UTC()
	}
	h.health.Record(r.Context(), owner, m)
	h.devices.Touch(r.Context(), dev.ID, m.TakenAt)
	writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (h *DeviceHandler) writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Device not found.")
		return
	}
	writeError(w, http.StatusInternalServerError, "device operation failed")
}
