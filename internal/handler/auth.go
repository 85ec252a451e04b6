package handler

import (
	"errors"
	"net/http"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/repository"
)

type AuthHandler struct {
	users  *repository.UserRepository
	tokens *repository.TokenRepository
}

func NewAuthHandler(users *repository.UserRepository, tokens *repository.TokenRepository) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

type registerBody struct {
	Username string     `json:"username" validate:"notblank,max=150"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"oneof=doctor patient"`
}

type loginBody struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerBody
	if !decodeBody(w, r, &req) {
		return
	}
	acc, err := h.users.Create(r.Context(), req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			writeError(w, http.StatusBadRequest, "A user with that username already exists.")
			return
		}
		logger.Errorf("register username=%s: %v", req.Username, err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	tok := h.tokens.Issue(r.Context(), acc.ID)
	logger.Infof("registered user id=%d role=%s", acc.ID, acc.Role)
	writeJSON(w, http.StatusCreated, model.AuthResponse{Token: tok, User: &acc.User})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginBody
	if !decodeBody(w, r, &req) {
		return
	}
	acc, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	tok := h.tokens.Issue(r.Context(), acc.ID)
	writeJSON(w, http.StatusOK, model.AuthResponse{Token: tok, User: &acc.User})
}
