package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/model"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserRepository хранит учётные записи и назначения врачей пациентам в памяти.
type UserRepository struct {
	mu       sync.RWMutex
	byID     map[int64]*model.Account
	byName   map[string]int64
	assigned map[int64]map[int64]struct{} // patient -> doctors
	nextID   int64
	cost     int
}

// NewUserRepository: cost задаёт стоимость bcrypt (0 означает bcrypt.DefaultCost).
func NewUserRepository(cost int) *UserRepository {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserRepository{
		byID:     make(map[int64]*model.Account),
		byName:   make(map[string]int64),
		assigned: make(map[int64]map[int64]struct{}),
		cost:     cost,
	}
}

func (r *UserRepository) Create(ctx context.Context, username, email, password string, role model.Role) (*model.Account, error) {
	defer logger.DeferLogDuration("user.Create", time.Now())()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, err
	}
	key := strings.ToLower(username)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[key]; ok {
		return nil, ErrUsernameTaken
	}
	r.nextID++
	acc := &model.Account{
		User:         model.User{ID: r.nextID, Username: username, Email: email, Role: role},
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	r.byID[acc.ID] = acc
	r.byName[key] = acc.ID
	out := *acc
	return &out, nil
}

// Authenticate проверяет пароль. Неизвестный пользователь и неверный пароль неразличимы.
func (r *UserRepository) Authenticate(ctx context.Context, username, password string) (*model.Account, error) {
	r.mu.RLock()
	id, ok := r.byName[strings.ToLower(username)]
	var acc model.Account
	if ok {
		acc = *r.byID[id]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &acc, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acc, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *acc
	return &out, nil
}

// Assign закрепляет пациента за врачом.
func (r *UserRepository) Assign(ctx context.Context, doctorID, patientID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[doctorID]
	if !ok || d.Role != model.RoleDoctor {
		return ErrNotFound
	}
	p, ok := r.byID[patientID]
	if !ok || p.Role != model.RolePatient {
		return ErrNotFound
	}
	if r.assigned[patientID] == nil {
		r.assigned[patientID] = make(map[int64]struct{})
	}
	r.assigned[patientID][doctorID] = struct{}{}
	return nil
}

func (r *UserRepository) isAssigned(doctorID, patientID int64) bool {
	_, ok := r.assigned[patientID][doctorID]
	return ok
}

// Contacts — пользователи противоположной роли: пациенту врачи, врачу пациенты.
// Сначала закреплённые, затем по id.
func (r *UserRepository) Contacts(ctx context.Context, userID int64) ([]model.Contact, error) {
	defer logger.DeferLogDuration("user.Contacts", time.Now())()
	r.mu.RLock()
	defer r.mu.RUnlock()
	me, ok := r.byID[userID]
	if !ok {
		return nil, ErrNotFound
	}
	want := me.Role.Counterpart()
	out := make([]model.Contact, 0)
	for _, acc := range r.byID {
		if acc.Role != want {
			continue
		}
		var assigned bool
		if me.Role == model.RolePatient {
			assigned = r.isAssigned(acc.ID, me.ID)
		} else {
			assigned = r.isAssigned(me.ID, acc.ID)
		}
		out = append(out, acc.ToContact(assigned))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsAssigned != out[j].IsAssigned {
			return out[i].IsAssigned
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CanMessage — переписка разрешена только между врачом и пациентом.
func (r *UserRepository) CanMessage(ctx context.Context, from, to int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok1 := r.byID[from]
	b, ok2 := r.byID[to]
	return ok1 && ok2 && a.Role.Counterpart() == b.Role
}
