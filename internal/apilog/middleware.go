package apilog

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	request "photoportal/pkg/platform/middleware/request"
	"photoportal/pkg/requestcontext"
)

const recordTimeout = 5 * time.Second

// skipPaths are high-frequency infrastructure endpoints not worth auditing.
var skipPaths = map[string]bool{
	"/health":       true,
	"/health/ready": true,
	"/metrics":      true,
}

// Middleware records an audit entry for every API request. The write happens
// off the request path after the response is flushed; failures are logged and
// dropped.
func Middleware(store Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ctx, ann := withAnnotation(r.Context())
			rw := &request.ResponseWriter{ResponseWriter: w, Status: http.StatusOK}

			next.ServeHTTP(rw, r.WithContext(ctx))

			userID, tenantID := ann.snapshot()
			browser, osName := ParseUserAgent(r.UserAgent())
			entry := &Entry{
				ID:         uuid.New().String(),
				Method:     r.Method,
				Path:       r.URL.Path,
				StatusCode: rw.Status,
				UserID:     userID,
				TenantID:   tenantID,
				IPAddress:  clientIP(r),
				UserAgent:  r.UserAgent(),
				Browser:    browser,
				OS:         osName,
				DurationMS: int(time.Since(start).Milliseconds()),
				CreatedAt:  requestcontext.Now(ctx),
			}

			requestID := requestcontext.RequestID(ctx)
			go func() {
				recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
				defer cancel()
				if err := store.Record(recordCtx, entry); err != nil {
					logger.WarnContext(recordCtx, "failed to record api log",
						"error", err,
						"path", entry.Path,
						"request_id", requestID,
					)
				}
			}()
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the socket
// address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
