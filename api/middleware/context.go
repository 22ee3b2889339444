package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
)

type ctxKey uint8

const (
	userIDKey ctxKey = iota
	accessIDKey
)

func withValue(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// WithUserID marks the request as made by userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, userIDKey, userID)
}

// WithAccessID records the jti of the access token that authenticated the request.
func WithAccessID(ctx context.Context, accessID string) context.Context {
	return withValue(ctx, accessIDKey, accessID)
}

func UserIDFromContext(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

func AccessIDFromContext(ctx context.Context) string {
	return stringValue(ctx, accessIDKey)
}

// UserUUIDFromContext is uuid.Nil for anonymous requests.
func UserUUIDFromContext(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RequireUserID returns the signed-in user or an UNAUTHORIZED error.
func RequireUserID(ctx context.Context) (uuid.UUID, error) {
	if id := UserUUIDFromContext(ctx); id != uuid.Nil {
		return id, nil
	}
	return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, loginRequiredMessage)
}
