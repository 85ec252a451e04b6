package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// TokenRepository выдаёт непрозрачные токены доступа. Один токен на пользователя:
// повторный вход возвращает тот же токен.
type TokenRepository struct {
	mu     sync.RWMutex
	byTok  map[string]int64
	byUser map[int64]string
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{byTok: make(map[string]int64), byUser: make(map[int64]string)}
}

func (r *TokenRepository) Issue(ctx context.Context, userID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tok, ok := r.byUser[userID]; ok {
		return tok
	}
	tok := uuid.NewString()
	r.byTok[tok] = userID
	r.byUser[userID] = tok
	return tok
}

func (r *TokenRepository) Resolve(ctx context.Context, token string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTok[token]
	if !ok {
		return 0, ErrNotFound
	}
	return id, nil
}

// Revoke удаляет токен пользователя.
func (r *TokenRepository) Revoke(ctx context.Context, userID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tok, ok := r.byUser[userID]; ok {
		delete(r.byTok, tok)
		delete(r.byUser, userID)
	}
}
