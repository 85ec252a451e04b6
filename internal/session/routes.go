package session

import "github.com/healthtic/internal/model"

// Landing routes of the two presentations.
const (
	RouteClinician = "/"
	RoutePatient   = "/patient"
	RouteLogin     = "/login"
)

// HomeRoute is where the routing layer sends a user after login.
func HomeRoute(role model.Role) string {
	switch role {
	case model.RoleDoctor:
		return RouteClinician
	case model.RolePatient:
		return RoutePatient
	default:
		return RouteLogin
	}
}

// Route reads the current session and picks the landing route.
func (s *Store) Route() string {
	if !s.IsAuthenticated() {
		return RouteLogin
	}
	return HomeRoute(s.Role())
}
