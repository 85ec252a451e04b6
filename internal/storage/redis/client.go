package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// keyPrefix отделяет ключи клиента от прочих данных в общей БД Redis.
const keyPrefix = "healthtic:"

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// Load возвращает сериализованную сессию по ключу healthtic:{key}. Без TTL: сессия живёт до Logout.
func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := c.cli.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (c *Client) Save(ctx context.Context, key string, data []byte) error {
	if err := c.cli.Set(ctx, keyPrefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.cli.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}
