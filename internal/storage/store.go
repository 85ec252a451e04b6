package storage

import "context"

// SessionStore — долговременное хранилище сериализованной сессии клиента.
// Реализации: file.Client (по умолчанию), redis.Client, memory.Client (тесты, -memory).
// Load возвращает nil, nil, если ключа нет.
type SessionStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
