package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"estate-search/internal/common/logger"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey int

const loggerKey ctxKey = iota

func contextWithLogger(ctx context.Context, log logger.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// loggerFromContext returns the request-scoped logger, or fallback outside a
// request.
func loggerFromContext(ctx context.Context, fallback logger.Logger) logger.Logger {
	if log, ok := ctx.Value(loggerKey).(logger.Logger); ok {
		return log
	}
	return fallback
}

// LoggerMiddleware tags each request with a request id and logs its start and
// outcome. A valid incoming X-Request-ID is reused.
func LoggerMiddleware(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLog := log.WithFields(map[string]interface{}{"requestId": requestID})
			httpLog := reqLog.WithFields(map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"remoteAddr": r.RemoteAddr,
			})

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			httpLog.Debug("Request started", nil)
			next.ServeHTTP(ww, r.WithContext(contextWithLogger(r.Context(), reqLog)))

			httpLog.Info("Request finished", map[string]interface{}{
				"status":       ww.Status(),
				"bytesWritten": ww.BytesWritten(),
				"durationMs":   time.Since(start).Milliseconds(),
			})
		})
	}
}
