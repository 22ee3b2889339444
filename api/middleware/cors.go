package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/geonmarket-backend/pkg/config"
)

// CORS applies the browser origin policy to every path except openPaths,
// whose handlers answer preflights on their own.
func CORS(cfg config.CORSConfig, openPaths ...string) func(http.Handler) http.Handler {
	policy := cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", IdempotencyKeyHeader, "X-Requested-With", "X-Device-Id"},
		ExposedHeaders:   []string{requestIDHeader, "Retry-After", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return func(next http.Handler) http.Handler {
		withPolicy := policy(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(openPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			withPolicy.ServeHTTP(w, r)
		})
	}
}
