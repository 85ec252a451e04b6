// Package auth wires the login and registration forms to the backend and the session.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
	"github.com/healthtic/internal/session"
	"github.com/healthtic/internal/validate"
)

// ErrInvalidResponse — the backend answered 2xx without a token or a user.
var ErrInvalidResponse = errors.New("invalid response format from server")

// API is the part of the backend the auth flows use.
type API interface {
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error)
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error)
}

type Service struct {
	api     API
	session *session.Store
}

func NewService(api API, s *session.Store) *Service {
	return &Service{api: api, session: s}
}

// Login validates the form, authenticates, stores the session and returns the
// landing route for the user's role.
func (s *Service) Login(ctx context.Context, form validate.LoginForm) (string, error) {
	if err := validate.Struct(form); err != nil {
		return "", err
	}
	resp, err := s.api.Login(ctx, model.LoginRequest{Username: form.Username, Password: form.Password})
	if err != nil {
		return "", err
	}
	return s.accept(ctx, resp)
}

// Register creates the account and then logs in with the same credentials.
func (s *Service) Register(ctx context.Context, form validate.RegisterForm) (string, error) {
	if err := validate.Struct(form); err != nil {
		return "", err
	}
	_, err := s.api.Register(ctx, model.RegisterRequest{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		Role:     model.Role(form.Role),
	})
	if err != nil {
		return "", err
	}
	resp, err := s.api.Login(ctx, model.LoginRequest{Username: form.Username, Password: form.Password})
	if err != nil {
		return "", fmt.Errorf("auto-login after register: %w", err)
	}
	return s.accept(ctx, resp)
}

func (s *Service) accept(ctx context.Context, resp *model.AuthResponse) (string, error) {
	if resp == nil || resp.Token == "" || resp.User == nil || !resp.User.Role.Valid() {
		return "", ErrInvalidResponse
	}
	s.session.Login(ctx, resp.Token, *resp.User)
	logger.Infof("auth: logged in user=%s role=%s token=%s", resp.User.Username, resp.User.Role, logger.MaskSecret(resp.Token))
	return session.HomeRoute(resp.User.Role), nil
}

// Logout clears the local session. The backend token is not revoked.
func (s *Service) Logout(ctx context.Context) {
	s.session.Logout(ctx)
}
