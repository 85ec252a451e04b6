package memory

import (
	"context"
	"sync"
)

// Client держит сессии в памяти процесса; переживает только Logout/Login, не перезапуск.
type Client struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func New() *Client {
	return &Client{data: make(map[string][]byte)}
}

func (c *Client) Close() error { return nil }

func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (c *Client) Save(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := make([]byte, len(data))
	copy(v, data)
	c.data[key] = v
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}
