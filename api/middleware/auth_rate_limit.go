package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/geonmarket-backend/api/responses"
	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

const rateLimitedMessage = "요청이 너무 많습니다. 잠시 후 다시 시도해주세요."

// WindowLimiter counts hits for a scope inside a fixed window.
type WindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// throttleRule limits one dimension of a request. key returns "" when the
// request carries nothing to count on that dimension.
type throttleRule struct {
	dimension string
	limit     int
	key       func(r *http.Request, body []byte) string
}

// AuthRateLimitPolicy is the set of rules applied to one auth endpoint.
type AuthRateLimitPolicy struct {
	name   string
	window time.Duration
	rules  []throttleRule
}

// NewAuthRateLimitPolicy limits attempts per client IP and per submitted
// email. A non-positive limit turns that dimension off.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	p := AuthRateLimitPolicy{name: name, window: window}
	if ipLimit > 0 {
		p.rules = append(p.rules, throttleRule{dimension: "ip", limit: ipLimit, key: func(r *http.Request, _ []byte) string {
			return clientIP(r)
		}})
	}
	if emailLimit > 0 {
		p.rules = append(p.rules, throttleRule{dimension: "email", limit: emailLimit, key: func(_ *http.Request, body []byte) string {
			return emailDigest(body)
		}})
	}
	return p
}

// SignInPolicy throttles credential checks.
func SignInPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return NewAuthRateLimitPolicy("signin", cfg.SignInWindow, cfg.SignInIPLimit, cfg.SignInEmailLimit)
}

// SignUpPolicy throttles account creation.
func SignUpPolicy(cfg config.AuthRateLimitConfig) AuthRateLimitPolicy {
	return NewAuthRateLimitPolicy("signup", cfg.SignUpWindow, cfg.SignUpIPLimit, cfg.SignUpEmailLimit)
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.rules) > 0
}

func (p AuthRateLimitPolicy) readsBody() bool {
	for _, rule := range p.rules {
		if rule.dimension == "email" {
			return true
		}
	}
	return false
}

// scope is the counter name handed to the limiter, e.g. "signin:ip:1.2.3.4".
func (p AuthRateLimitPolicy) scope(dimension, value string) string {
	return p.name + ":" + dimension + ":" + value
}

// AuthRateLimit rejects a request with 429 once any rule of policy is over
// its limit for the current window.
func AuthRateLimit(policy AuthRateLimitPolicy, limiter WindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.readsBody() && r.Body != nil {
				raw, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				body = raw
				r.Body = io.NopCloser(bytes.NewReader(raw))
			}

			for _, rule := range policy.rules {
				value := rule.key(r, body)
				if value == "" {
					continue
				}
				allowed, count, err := limiter.FixedWindowAllow(ctx, policy.scope(rule.dimension, value), int64(rule.limit), policy.window)
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.name,
							"dimension": rule.dimension,
							"attempts":  count,
							"limit":     rule.limit,
						}), "auth attempt throttled")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
					responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, rateLimitedMessage))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// emailDigest hashes the normalized email in body so raw addresses never
// reach the counter keys or logs.
func emailDigest(body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
