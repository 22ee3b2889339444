package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errSubjectMismatch = errors.New("token subject does not match user id")

// AccessTokenPayload is what the auth service knows when it mints a token.
// An empty JTI gets a random one.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	JTI    string
}

// AccessTokenClaims is the body of a GeonMarket access token. The jti doubles
// as the key of the refresh session in Redis.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims checks and ties sub to user_id.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil || c.Subject != c.UserID.String() {
		return errSubjectMismatch
	}
	return nil
}
