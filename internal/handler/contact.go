package handler

import (
	"net/http"

	"github.com/healthtic/internal/middleware"
	"github.com/healthtic/internal/repository"
)

type ContactHandler struct {
	users *repository.UserRepository
}

func NewContactHandler(users *repository.UserRepository) *ContactHandler {
	return &ContactHandler{users: users}
}

// List отдаёт GET /api/users/contacts/ (врачи для пациента, пациенты для врача).
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	contacts, err := h.users.Contacts(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}
