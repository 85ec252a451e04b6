package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/healthtic/internal/logger"
	"gopkg.in/yaml.v3"
)

// loadEnv читает .env только вне production (в контейнере/prod конфиг только из env).
func loadEnv() {
	if os.Getenv("APP_ENV") == "production" {
		return
	}
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for i := 0; i < 5; i++ {
		f, err := os.Open(filepath.Join(dir, ".env"))
		if err == nil {
			loadEnvFrom(f)
			f.Close()
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func loadEnvFrom(f *os.File) {
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])
		if key == "" {
			continue
		}
		if len(val) >= 2 && (val[0] == '"' && val[len(val)-1] == '"' || val[0] == '\'' && val[len(val)-1] == '\'') {
			val = val[1 : len(val)-1]
		}
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// Session backends.
const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// SessionConfig — где хранится сессия между перезапусками клиента.
type SessionConfig struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	Key      string `yaml:"key"`
	RedisURL string `yaml:"redis_url"`
}

// ServerConfig — настройки dev-бэкенда (services/devapi).
type ServerConfig struct {
	Addr               string        `yaml:"-"`
	ReadTimeout        time.Duration `yaml:"-"`
	WriteTimeout       time.Duration `yaml:"-"`
	IdleTimeout        time.Duration `yaml:"-"`
	CORSAllowedOrigins string        `yaml:"-"`
	SeedDemo           bool          `yaml:"-"`
}

// Config содержит настройки клиента и dev-бэкенда.
// Приоритет: переменные окружения > YAML-файл > значения по умолчанию.
type Config struct {
	// APIURL — базовый адрес REST API (включая префикс, например /api).
	APIURL string
	// WSURL — адрес WebSocket уведомлений. Пустой — realtime отключён.
	WSURL string
	// AuthScheme — схема заголовка Authorization ("Token" для DRF-бэкенда).
	AuthScheme  string
	HTTPTimeout time.Duration

	Session SessionConfig

	// ReorderOnSend — пересортировать список бесед по последнему сообщению после отправки.
	ReorderOnSend bool

	LogLevel string

	Server ServerConfig
}

// yamlConfig — промежуточная структура для парсинга YAML.
type yamlConfig struct {
	APIURL             string        `yaml:"api_url"`
	WSURL              string        `yaml:"ws_url"`
	AuthScheme         string        `yaml:"auth_scheme"`
	HTTPTimeout        int           `yaml:"http_timeout"`
	Session            SessionConfig `yaml:"session"`
	ReorderOnSend      bool          `yaml:"reorder_on_send"`
	LogLevel           string        `yaml:"log_level"`
	ServerAddr         string        `yaml:"server_addr"`
	ReadTimeout        int           `yaml:"read_timeout"`
	WriteTimeout       int           `yaml:"write_timeout"`
	IdleTimeout        int           `yaml:"idle_timeout"`
	CORSAllowedOrigins string        `yaml:"cors_allowed_origins"`
	SeedDemo           bool          `yaml:"seed_demo"`
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "healthtic", "auth-storage.json")
	}
	return filepath.Join(home, ".healthtic", "auth-storage.json")
}

// Load загружает конфигурацию.
// Сначала подгружаются переменные из .env (если есть), затем YAML и env (env имеет приоритет).
func Load() *Config {
	loadEnv()
	yc := yamlConfig{
		APIURL:      "http://127.0.0.1:8000/api",
		AuthScheme:  "Token",
		HTTPTimeout: 15,
		Session: SessionConfig{
			Backend:  SessionBackendFile,
			Path:     defaultSessionPath(),
			Key:      "auth-storage",
			RedisURL: "redis://localhost:6379",
		},
		LogLevel:           "info",
		ServerAddr:         ":8000",
		ReadTimeout:        15,
		WriteTimeout:       15,
		IdleTimeout:        60,
		CORSAllowedOrigins: "*",
	}

	paths := []string{os.Getenv("CONFIG_PATH"), "config/client.yaml"}
	for _, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := parseYAML(data, &yc); err != nil {
			logger.Errorf("config: ошибка парсинга %s: %v (используются значения по умолчанию)", path, err)
		} else {
			logger.Infof("config: загружен %s", path)
		}
		break
	}

	return &Config{
		APIURL:      strings.TrimSuffix(envStr("API_URL", yc.APIURL), "/"),
		WSURL:       envStr("WS_URL", yc.WSURL),
		AuthScheme:  envStr("AUTH_SCHEME", yc.AuthScheme),
		HTTPTimeout: time.Duration(envInt("HTTP_TIMEOUT", yc.HTTPTimeout)) * time.Second,
		Session: SessionConfig{
			Backend:  envStr("SESSION_BACKEND", yc.Session.Backend),
			Path:     envStr("SESSION_PATH", yc.Session.Path),
			Key:      envStr("SESSION_KEY", yc.Session.Key),
			RedisURL: envStr("REDIS_URL", yc.Session.RedisURL),
		},
		ReorderOnSend: envBool("REORDER_ON_SEND", yc.ReorderOnSend),
		LogLevel:      envStr("LOG_LEVEL", yc.LogLevel),
		Server: ServerConfig{
			Addr:               envStr("SERVER_ADDR", yc.ServerAddr),
			ReadTimeout:        time.Duration(envInt("READ_TIMEOUT", yc.ReadTimeout)) * time.Second,
			WriteTimeout:       time.Duration(envInt("WRITE_TIMEOUT", yc.WriteTimeout)) * time.Second,
			IdleTimeout:        time.Duration(envInt("IDLE_TIMEOUT", yc.IdleTimeout)) * time.Second,
			CORSAllowedOrigins: envStr("CORS_ALLOWED_ORIGINS", yc.CORSAllowedOrigins),
			SeedDemo:           envBool("SEED_DEMO", yc.SeedDemo),
		},
	}
}

// parseYAML накладывает YAML поверх уже заполненных значений по умолчанию.
// Пустые строки в файле не затирают дефолты вложенной секции session.
func parseYAML(data []byte, yc *yamlConfig) error {
	defSession := yc.Session
	if err := yaml.Unmarshal(data, yc); err != nil {
		return err
	}
	if yc.Session.Backend == "" {
		yc.Session.Backend = defSession.Backend
	}
	if yc.Session.Path == "" {
		yc.Session.Path = defSession.Path
	}
	if yc.Session.Key == "" {
		yc.Session.Key = defSession.Key
	}
	if yc.Session.RedisURL == "" {
		yc.Session.RedisURL = defSession.RedisURL
	}
	return nil
}

// envStr возвращает значение переменной окружения или fallback.
func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envInt возвращает числовое значение переменной окружения или fallback.
func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
