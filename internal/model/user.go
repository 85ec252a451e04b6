package model

import "time"

// Role: роль пользователя; определяет пару для переписки и стартовый маршрут.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Valid сообщает, известна ли роль клиенту.
func (r Role) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}

// Counterpart возвращает роль собеседника: пациент пишет врачам, врач пишет пациентам.
func (r Role) Counterpart() Role {
	if r == RolePatient {
		return RoleDoctor
	}
	return RolePatient
}

// User: личность из ответа /auth/login. ID может отсутствовать (0), если бэкенд его не вернул.
type User struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// Contact: собеседник, доступный для переписки (только чтение).
type Contact struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	IsAssigned bool   `json:"is_assigned,omitempty"`
}

// DisplayName добавляет "Dr. " для врачей, как в списке контактов.
func (c Contact) DisplayName() string {
	if c.Role == RoleDoctor {
		return "Dr. " + c.Username
	}
	return c.Username
}

// Account: запись пользователя на стороне dev-бэкенда.
type Account struct {
	User
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// ToContact проецирует учётную запись в контакт.
func (a *Account) ToContact(assigned bool) Contact {
	return Contact{
		ID:         a.ID,
		Username:   a.Username,
		Email:      a.Email,
		Role:       a.Role,
		IsAssigned: assigned,
	}
}
