// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-meetup-service/internal/logging"
)

// healthPaths are served without request logs.
var healthPaths = map[string]bool{
	"/livez":  true,
	"/readyz": true,
}

// RequestLoggerMiddleware logs every request and its response status.
// Request attributes are added to the context so that handler logs carry them too.
func RequestLoggerMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if healthPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			ctx := r.Context()
			ctx = logging.AppendCtx(ctx, slog.String("method", r.Method))
			ctx = logging.AppendCtx(ctx, slog.String("path", r.URL.Path))
			if r.URL.RawQuery != "" {
				ctx = logging.AppendCtx(ctx, slog.String("query", r.URL.RawQuery))
			}
			ctx = logging.AppendCtx(ctx, slog.String("user_agent", r.UserAgent()))
			ctx = logging.AppendCtx(ctx, slog.String("remote_addr", r.RemoteAddr))
			r = r.WithContext(ctx)

			ww := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			slog.InfoContext(ctx, "HTTP request")
			next.ServeHTTP(ww, r)
			slog.InfoContext(ctx, "HTTP response",
				"status", ww.statusCode,
				"duration", time.Since(start).String(),
			)
		})
	}
}

// statusRecorder captures the status code written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
