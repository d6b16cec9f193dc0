package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type requestLogKey struct{}

// requestLog collects fields set by inner middleware for the access log line.
type requestLog struct {
	residentID int64
	limitedBy  string
}

func withRequestLog(ctx context.Context) (context.Context, *requestLog) {
	rl := &requestLog{}
	return context.WithValue(ctx, requestLogKey{}, rl), rl
}

func requestLogFrom(ctx context.Context) *requestLog {
	rl, _ := ctx.Value(requestLogKey{}).(*requestLog)
	return rl
}

// Logging writes one access line per request once the handler chain returns.
// The resident is attached when Auth accepted a token further down the chain.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, rl := withRequestLog(r.Context())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		event := accessEvent(status).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("ip", realIPFromRequest(r))

		if rctx := chi.RouteContext(ctx); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				event = event.Str("route", pattern)
			}
		}
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			event = event.Str("request_id", reqID)
		}
		if rl.residentID != 0 {
			event = event.Int64("resident_id", rl.residentID)
		}
		if rl.limitedBy != "" {
			event = event.Str("rate_limiter", rl.limitedBy)
		}

		event.Msg("http_request")
	})
}

func accessEvent(status int) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Error()
	case status >= http.StatusBadRequest:
		return log.Warn()
	default:
		return log.Info()
	}
}
