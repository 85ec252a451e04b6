package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Client хранит каждую запись в отдельном JSON-файле:
// запись с ключом defaultKey (или пустым) лежит ровно по path,
// прочие ключи пишутся в соседние файлы {key}.json.
type Client struct {
	mu   sync.Mutex
	dir  string
	file string
	def  string
}

// New создаёт хранилище; каталог создаётся лениво при первой записи.
// Пустой defaultKey означает имя файла path без расширения.
func New(path, defaultKey string) *Client {
	if defaultKey == "" {
		defaultKey = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return &Client{dir: filepath.Dir(path), file: path, def: defaultKey}
}

func (c *Client) Close() error { return nil }

func (c *Client) path(key string) string {
	if key == "" || key == c.def {
		return c.file
	}
	return filepath.Join(c.dir, filepath.Base(key)+".json")
}

func (c *Client) Load(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file load %s: %w", key, err)
	}
	return data, nil
}

// Save пишет через временный файл и rename, чтобы прерванная запись не оставила полдокумента.
func (c *Client) Save(ctx context.Context, key string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o700); err != nil {
		return fmt.Errorf("file mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("file temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file close: %w", err)
	}
	if err := os.Rename(tmpName, c.path(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file rename: %w", err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := os.Remove(c.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file delete %s: %w", key, err)
	}
	return nil
}
