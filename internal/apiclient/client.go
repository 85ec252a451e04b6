// Package apiclient is the HTTP transport to the HEALTH TIC REST backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/healthtic/internal/logger"
)

const maxErrorBody = 4096

// TokenSource supplies the session token read before every request.
// The client never writes to it.
type TokenSource interface {
	Token() string
}

// Client вызывает REST API бэкенда. Все методы безопасны для параллельного использования.
type Client struct {
	baseURL    string
	scheme     string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport (tests, custom TLS).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithAuthScheme sets the Authorization scheme ("Token" for DRF, "Bearer", ...).
func WithAuthScheme(s string) Option {
	return func(c *Client) {
		if s != "" {
			c.scheme = s
		}
	}
}

// New создаёт клиент. baseURL включает префикс API, например http://127.0.0.1:8000/api.
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		scheme:     "Token",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		tokens:     tokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) authHeader() string {
	if c.tokens == nil {
		return ""
	}
	tok := c.tokens.Token()
	if tok == "" {
		return ""
	}
	return c.scheme + " " + tok
}

// AuthHeader is exposed for the websocket dialer, which authenticates the same way.
func (c *Client) AuthHeader() string { return c.authHeader() }

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	op := method + " " + path
	defer logger.DeferLogDuration("api "+op, time.Now())()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api %s: encode: %w", op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("api %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	if h := c.authHeader(); h != "" {
		req.Header.Set("Authorization", h)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorMessage(raw)
		logger.Debugf("api %s -> %d %s", op, resp.StatusCode, msg)
		return statusError(resp.StatusCode, path, msg)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("api %s: decode: %w", op, err)
	}
	return nil
}

// errorMessage extracts {"error": ..} or {"detail": ..} from an error body.
func errorMessage(raw []byte) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var env struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Detail != "" {
			return env.Detail
		}
	}
	return truncate(string(raw), maxErrorText)
}

const maxErrorText = 200

// truncate обрезает s до n рун, не разрезая многобайтовые символы.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
