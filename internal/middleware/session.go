package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/healthtic/internal/logger"
)

// TokenResolver maps an opaque access token to a user id.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// bearerToken достаёт токен из "Authorization: Token <t>" или "Bearer <t>",
// для WebSocket из браузера из ?token=.
func bearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok {
			return ""
		}
		if strings.EqualFold(scheme, "Token") || strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(tok)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// TokenAuth пропускает запрос только с действующим токеном и кладёт user_id в контекст.
func TokenAuth(tokens TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearerToken(r)
			if tok == "" {
				unauthorized(w, "Authentication credentials were not provided.")
				return
			}
			userID, err := tokens.Resolve(r.Context(), tok)
			if err != nil {
				logger.Debugf("token auth rejected token=%s: %v", logger.MaskSecret(tok), err)
				unauthorized(w, "Invalid token.")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("WWW-Authenticate", "Token")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"detail":"` + detail + `"}`))
}
