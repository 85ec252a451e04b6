package startup

import (
	"context"
	"fmt"
	"time"

	"github.com/healthtic/internal/config"
	"github.com/healthtic/internal/logger"
	"github.com/healthtic/internal/storage"
	"github.com/healthtic/internal/storage/file"
	"github.com/healthtic/internal/storage/memory"
	redisstorage "github.com/healthtic/internal/storage/redis"
)

// ConnectRedisWithRetry подключается к Redis с повторами, не дольше maxWait.
// В отличие от сервера, CLI не падает: ошибка возвращается вызывающему.
func ConnectRedisWithRetry(ctx context.Context, redisURL string, maxWait time.Duration) (*redisstorage.Client, error) {
	deadline := time.Now().Add(maxWait)
	backoff := 500 * time.Millisecond
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		client, err := redisstorage.New(attemptCtx, redisURL)
		cancel()
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("redis (gave up after %v): %w", maxWait, err)
		}
		logger.Errorf("redis connect failed, retry in %v: %v", backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 4*time.Second {
			backoff *= 2
		}
	}
}

// OpenSessionStore выбирает хранилище сессии по SESSION_BACKEND.
func OpenSessionStore(ctx context.Context, cfg config.SessionConfig) (storage.SessionStore, error) {
	switch cfg.Backend {
	case config.SessionBackendMemory:
		return memory.New(), nil
	case config.SessionBackendRedis:
		return ConnectRedisWithRetry(ctx, cfg.RedisURL, 10*time.Second)
	case config.SessionBackendFile, "":
		return file.New(cfg.Path, cfg.Key), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
