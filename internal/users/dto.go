package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
)

// UserDTO is a user as clients see it. The password hash never leaves the
// service.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName"`
	Phone       *string    `json:"phone,omitempty"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// CreateUserDTO is what sign-up hands to the repository.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	Name         string
	Phone        *string
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	dto := UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		DisplayName: DisplayName(u),
		Phone:       u.Phone,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
	return &dto
}

func (c CreateUserDTO) ToModel() *models.User {
	u := models.User{Email: NormalizeEmail(c.Email), PasswordHash: c.PasswordHash, Name: strings.TrimSpace(c.Name)}
	if c.Phone != nil {
		if phone := strings.TrimSpace(*c.Phone); phone != "" {
			u.Phone = &phone
		}
	}
	return &u
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName is the name shown for a user: the stored name, else the local
// part of the email, else a generic fallback.
func DisplayName(u *models.User) string {
	if u == nil {
		return DefaultDisplayName
	}
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(u.Email, "@"); ok && local != "" {
		return local
	}
	return DefaultDisplayName
}

const DefaultDisplayName = "사용자"
