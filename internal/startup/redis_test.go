package startup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/healthtic/internal/config"
	"github.com/healthtic/internal/storage/file"
	"github.com/healthtic/internal/storage/memory"
	redisstorage "github.com/healthtic/internal/storage/redis"
)

func TestOpenSessionStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		cfg     config.SessionConfig
		check   func(t *testing.T, v any)
		wantErr bool
	}{
		{
			name: "memory",
			cfg:  config.SessionConfig{Backend: config.SessionBackendMemory},
			check: func(t *testing.T, v any) {
				if _, ok := v.(*memory.Client); !ok {
					t.Errorf("got %T, want *memory.Client", v)
				}
			},
		},
		{
			name: "file by default",
			cfg:  config.SessionConfig{Path: filepath.Join(t.TempDir(), "auth-storage.json")},
			check: func(t *testing.T, v any) {
				if _, ok := v.(*file.Client); !ok {
					t.Errorf("got %T, want *file.Client", v)
				}
			},
		},
		{
			name: "redis",
			cfg:  config.SessionConfig{Backend: config.SessionBackendRedis, RedisURL: "redis://" + mr.Addr()},
			check: func(t *testing.T, v any) {
				if _, ok := v.(*redisstorage.Client); !ok {
					t.Errorf("got %T, want *redis.Client", v)
				}
			},
		},
		{
			name:    "unknown",
			cfg:     config.SessionConfig{Backend: "etcd"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := OpenSessionStore(ctx, tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenSessionStore: %v", err)
			}
			defer st.Close()
			tt.check(t, st)
		})
	}
}

func TestConnectRedisWithRetryGivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := ConnectRedisWithRetry(ctx, "redis://127.0.0.1:1", 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected connection error")
	}
}
