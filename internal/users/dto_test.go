package users

import (
	"testing"

	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
)

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name string
		user *models.User
		want string
	}{
		{name: "stored name", user: &models.User{Name: " 김건설 ", Email: "kim@example.com"}, want: "김건설"},
		{name: "email local part", user: &models.User{Email: "builder@example.com"}, want: "builder"},
		{name: "fallback", user: &models.User{}, want: DefaultDisplayName},
		{name: "nil", user: nil, want: DefaultDisplayName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DisplayName(tc.user); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestCreateUserDTONormalizesEmail(t *testing.T) {
	user := CreateUserDTO{Email: "  Kim@Example.COM ", Name: " 김 "}.ToModel()
	if user.Email != "kim@example.com" {
		t.Fatalf("unexpected email %q", user.Email)
	}
	if user.Name != "김" {
		t.Fatalf("unexpected name %q", user.Name)
	}
}
