package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// AuthError — 401/403. Never treated as an empty result.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("not authorized (%d)", e.Status)
	}
	return fmt.Sprintf("not authorized (%d): %s", e.Status, e.Message)
}

// NotFoundError — 404. Listing endpoints turn it into an empty state.
type NotFoundError struct {
	Path    string
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message == "" {
		return "not found: " + e.Path
	}
	return "not found: " + e.Message
}

// NetworkError — the request got no response (refused, DNS, timeout, cancelled).
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return "server unreachable: " + e.Op + ": " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError — any other non-2xx answer.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("backend error %d: %s", e.Status, e.Message)
}

func IsAuth(err error) bool {
	var e *AuthError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsNetwork(err error) bool {
	var e *NetworkError
	return errors.As(err, &e)
}

// UserMessage turns any fetch-layer error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		ae *AuthError
		ne *NotFoundError
		se *StatusError
	)
	switch {
	case errors.As(err, &ae):
		if ae.Status == http.StatusForbidden {
			return "Access denied. Check your authentication."
		}
		return "Your session is not valid. Please log in again."
	case errors.As(err, &ne):
		if ne.Message != "" {
			return ne.Message
		}
		return "No data available for your account."
	case IsNetwork(err):
		return "The server is not responding. Check that the backend is running."
	case errors.As(err, &se):
		if se.Message != "" {
			return se.Message
		}
		return fmt.Sprintf("Error %d", se.Status)
	default:
		return err.Error()
	}
}

func statusError(status int, path, msg string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Status: status, Message: msg}
	case status == http.StatusNotFound:
		return &NotFoundError{Path: path, Message: msg}
	default:
		return &StatusError{Status: status, Message: msg}
	}
}
