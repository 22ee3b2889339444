package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/geonmarket-backend/api/responses"
	pkgauth "github.com/angelmondragon/geonmarket-backend/pkg/auth"
	"github.com/angelmondragon/geonmarket-backend/pkg/auth/session"
	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/logger"
)

const (
	loginRequiredMessage  = "로그인이 필요합니다"
	sessionExpiredMessage = "세션이 만료되었습니다. 다시 로그인해주세요."
)

// Auth admits requests carrying a valid bearer access token whose session is
// still live, and tags the context with the user and access ids.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r.Context(), cfg, sessions, bearerToken(r.Header.Get("Authorization")))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			userID := claims.UserID.String()
			ctx := WithAccessID(WithUserID(r.Context(), userID), claims.ID)
			ctx = logg.WithUserID(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, sessions session.AccessSessionChecker, token string) (*pkgauth.AccessTokenClaims, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, loginRequiredMessage)
	}
	claims, err := pkgauth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, sessionExpiredMessage)
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, sessionExpiredMessage)
	}
	if sessions == nil {
		return claims, nil
	}
	live, err := sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check access session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, sessionExpiredMessage)
	}
	return claims, nil
}

// bearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
