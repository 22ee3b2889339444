package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

// responseMeter remembers the status and size of what a handler wrote.
type responseMeter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (m *responseMeter) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(b []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.bytes += n
	return n, err
}

func (m *responseMeter) Unwrap() http.ResponseWriter {
	return m.ResponseWriter
}

// Logging tags the request context with method and route and writes one
// entry per request. Server errors are logged at warn level.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			meter := &responseMeter{ResponseWriter: w}
			start := time.Now()

			next.ServeHTTP(meter, r.WithContext(ctx))

			status := meter.status
			if status == 0 {
				status = http.StatusOK
			}
			done := logg.WithFields(ctx, map[string]any{
				"status":      status,
				"bytes":       meter.bytes,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			if status >= http.StatusInternalServerError {
				logg.Warn(done, "request failed")
				return
			}
			logg.Info(done, "request completed")
		})
	}
}
