package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/healthtic/internal/model"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc, tok string) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", staticToken(tok))
}

func TestRequestHeaders(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Write([]byte(`[]`))
	}, "abc")

	if _, err := c.Contacts(context.Background()); err != nil {
		t.Fatalf("Contacts: %v", err)
	}
	if got.URL.Path != "/api/users/contacts/" {
		t.Errorf("path = %q", got.URL.Path)
	}
	if h := got.Header.Get("Authorization"); h != "Token abc" {
		t.Errorf("Authorization = %q", h)
	}
	if got.Header.Get("X-Request-Id") == "" {
		t.Error("X-Request-Id missing")
	}
}

func TestNoAuthHeaderWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("unexpected Authorization %q", r.Header.Get("Authorization"))
		}
		json.NewEncoder(w).Encode(model.AuthResponse{Token: "t", User: &model.User{Username: "u", Role: model.RolePatient}})
	}, "")

	resp, err := c.Login(context.Background(), model.LoginRequest{Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token != "t" {
		t.Errorf("token = %q", resp.Token)
	}
}

func TestAuthScheme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h := r.Header.Get("Authorization"); h != "Bearer xyz" {
			t.Errorf("Authorization = %q", h)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, staticToken("xyz"), WithAuthScheme("Bearer"))
	if err := c.MarkAsRead(context.Background(), 4); err != nil {
		t.Fatalf("MarkAsRead: %v", err)
	}
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		check   func(error) bool
		message string
	}{
		{http.StatusUnauthorized, `{"detail":"Invalid token."}`, IsAuth, "Invalid token."},
		{http.StatusForbidden, `{"detail":"forbidden"}`, IsAuth, "forbidden"},
		{http.StatusNotFound, `{"error":"Aucune donnée"}`, IsNotFound, "Aucune donnée"},
		{http.StatusInternalServerError, `boom`, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Status == 500
		}, "boom"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}, "tok")
			_, err := c.Conversations(context.Background())
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error %T %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not carry backend message %q", err, tt.message)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, staticToken("tok"), WithTimeout(time.Second))
	_, err := c.MyDevices(context.Background())
	if !IsNetwork(err) {
		t.Fatalf("expected NetworkError, got %T %v", err, err)
	}
	if msg := UserMessage(err); !strings.Contains(msg, "not responding") {
		t.Errorf("UserMessage = %q", msg)
	}
}

func TestUpdateDeviceSendsOnlySetFields(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/devices/d-1/update/" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{}`))
	}, "tok")

	active := false
	if err := c.UpdateDevice(context.Background(), "d-1", model.DeviceUpdate{IsActive: &active}); err != nil {
		t.Fatalf("UpdateDevice: %v", err)
	}
	if _, ok := body["name"]; ok {
		t.Errorf("name must be omitted, body = %v", body)
	}
	if v, ok := body["is_active"]; !ok || v != false {
		t.Errorf("is_active = %v, %t", v, ok)
	}
}

func TestMessagesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("with_user") != "5" {
			t.Errorf("with_user = %q", r.URL.Query().Get("with_user"))
		}
		w.Write([]byte(`[{"id":1,"sender":5,"receiver":1,"content":"hi","created_at":"2024-05-01T10:00:00Z","is_read":false}]`))
	}, "tok")

	msgs, err := c.Messages(context.Background(), 5)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hi" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestAlertsNullBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}, "tok")
	alerts, err := c.Alerts(context.Background())
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("alerts = %v", alerts)
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(&AuthError{Status: 403}); !strings.Contains(got, "Access denied") {
		t.Errorf("403 message = %q", got)
	}
	if got := UserMessage(&NotFoundError{Path: "/x"}); got == "" {
		t.Error("404 message empty")
	}
	if got := UserMessage(nil); got != "" {
		t.Errorf("nil message = %q", got)
	}
}

func TestErrorBodyTruncatedOnRunes(t *testing.T) {
	body := strings.Repeat("é", 150) + " Données invalides"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	_, err := New(srv.URL, staticToken("t")).Contacts(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("Contacts = %v", err)
	}
	if !utf8.ValidString(se.Message) {
		t.Fatalf("message split a multi-byte character: %q", se.Message)
	}
	if n := utf8.RuneCountInString(se.Message); n != maxErrorText {
		t.Errorf("message has %d runes, want %d", n, maxErrorText)
	}
	if !strings.HasPrefix(body, se.Message) {
		t.Error("message is not a prefix of the body")
	}
}
