package auth

import "github.com/angelmondragon/geonmarket-backend/internal/users"

// SignUpRequest is the sign-up form. Password strength is checked by the
// service, not by tags.
type SignUpRequest struct {
	Email    string  `json:"email" validate:"required,email,max=254"`
	Password string  `json:"password" validate:"required,max=128"`
	Name     string  `json:"name" validate:"max=50"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest trades an (possibly expired) access token and its refresh
// token for a new pair.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken" validate:"required"`
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// SessionResponse is returned by sign-up, sign-in and refresh. ExpiresIn is
// the access token lifetime in seconds.
type SessionResponse struct {
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	ExpiresIn    int64          `json:"expiresIn"`
	User         *users.UserDTO `json:"user"`
}
