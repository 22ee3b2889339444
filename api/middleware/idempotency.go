package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/geonmarket-backend/api/responses"
	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/geonmarket-backend/pkg/redis"
)

// IdempotencyKeyHeader carries the client's retry token.
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	defaultIdempotencyTTL  = 24 * time.Hour
	criticalIdempotencyTTL = 7 * 24 * time.Hour
)

// retention picks how long a stored response is replayable. Routes that move
// money keep theirs longer.
type retention bool

const (
	standard retention = false
	critical retention = true
)

// guardedRoutes is keyed by "METHOD chi-pattern".
var guardedRoutes = map[string]retention{
	"POST /api/v1/listings":               standard,
	"POST /api/v1/accounts":               standard,
	"POST /api/v1/tokens/buy":             critical,
	"POST /api/v1/tokens/sell":            critical,
	"POST /api/v1/cart/checkout":          critical,
	"POST /api/v1/listings/{id}/buy-now":  critical,
	"POST /api/v1/listings/{id}/purchase": critical,
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the first response for a guarded route when a request
// repeats its Idempotency-Key with the same body. A different body under the
// same key is rejected. Server errors are not stored so the client can retry.
func Idempotency(store pkgredis.IdempotencyStore, cfg config.IdempotencyConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, routePattern(r), cfg)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			token := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
			if token == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key 헤더가 필요합니다."))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "요청 본문을 읽을 수 없습니다."))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := sha256.Sum256(body)
			hash := hex.EncodeToString(digest[:])
			key := store.IdempotencyKey(strings.Join([]string{UserIDFromContext(ctx), r.Method, r.URL.Path}, "|"), token)

			prior, err := lookupResponse(r, store, key)
			switch {
			case err != nil:
				responses.WriteError(ctx, logg, w, err)
				return
			case prior != nil && prior.RequestHash != hash:
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "같은 Idempotency-Key로 다른 요청을 보낼 수 없습니다."))
				return
			case prior != nil:
				if prior.ContentType != "" {
					w.Header().Set("Content-Type", prior.ContentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(prior.Status)
				_, _ = w.Write(prior.Body)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)
			if capture.status >= http.StatusInternalServerError {
				return
			}

			payload, err := json.Marshal(storedResponse{
				Status:      capture.statusOrOK(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				RequestHash: hash,
			})
			if err == nil {
				_, err = store.SetNX(ctx, key, string(payload), ttl)
			}
			if err != nil {
				logg.Error(ctx, "store idempotent response", err)
			}
		})
	}
}

func lookupResponse(r *http.Request, store pkgredis.IdempotencyStore, key string) (*storedResponse, error) {
	raw, err := store.Get(r.Context(), key)
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency key")
	}
	var prior storedResponse
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotent response")
	}
	return &prior, nil
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func routeTTL(method, pattern string, cfg config.IdempotencyConfig) (time.Duration, bool) {
	class, ok := guardedRoutes[method+" "+pattern]
	if !ok {
		return 0, false
	}
	if class == critical {
		return positiveOr(cfg.CriticalTTL, criticalIdempotencyTTL), true
	}
	return positiveOr(cfg.DefaultTTL, defaultIdempotencyTTL), true
}

func positiveOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

// responseCapture tees the handler's output so it can be stored.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
