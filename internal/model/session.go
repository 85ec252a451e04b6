package model

// Session: токен и пользователь; задаются и очищаются только вместе.
type Session struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// AuthResponse: ответ /auth/login и /auth/register.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// LoginRequest: тело POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest: тело POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}
