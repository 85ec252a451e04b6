package middleware

import (
	"net/http"
	"time"

	"github.com/healthtic/internal/logger"
)

// RequestLog пишет method, path, статус и X-Request-Id клиента. Ответы 4xx/5xx
// логируются всегда, остальные только при LOG_LEVEL=debug.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrap, ok := w.(*responseWriter)
		if !ok {
			wrap = &responseWriter{ResponseWriter: w, status: http.StatusOK}
		}
		next.ServeHTTP(wrap, r)
		rid := r.Header.Get("X-Request-Id")
		if wrap.status >= 400 {
			logger.Infof("http %s %s status=%d rid=%s duration_ms=%d",
				r.Method, r.URL.Path, wrap.status, rid, time.Since(start).Milliseconds())
			return
		}
		logger.Debugf("http %s %s status=%d rid=%s duration_ms=%d",
			r.Method, r.URL.Path, wrap.status, rid, time.Since(start).Milliseconds())
	})
}
