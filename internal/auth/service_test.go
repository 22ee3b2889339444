package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/geonmarket-backend/internal/users"
	pkgAuth "github.com/angelmondragon/geonmarket-backend/pkg/auth"
	"github.com/angelmondragon/geonmarket-backend/pkg/auth/session"
	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	"github.com/angelmondragon/geonmarket-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/geonmarket-backend/pkg/errors"
	"github.com/angelmondragon/geonmarket-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "geonmarket",
	ExpirationMinutes: 30,
}

func TestSignUpCreatesProfileAndSession(t *testing.T) {
	repo := newStubUserRepo()
	profiles := &stubProfiles{}
	svc, sessions := buildTestService(t, repo, profiles)

	var events []EventType
	unsubscribe := svc.Subscribe(func(e SessionEvent) { events = append(events, e.Type) })
	defer unsubscribe()

	resp, err := svc.SignUp(context.Background(), SignUpRequest{Email: " Kim@Example.com ", Password: "건설자재비번1", Name: "김건설"})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if resp.User.Email != "kim@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if resp.ExpiresIn != 30*60 {
		t.Fatalf("expected 1800s access lifetime, got %d", resp.ExpiresIn)
	}
	if len(profiles.created) != 1 || profiles.created[0] != resp.User.ID {
		t.Fatalf("expected profile provisioned for new user, got %v", profiles.created)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != resp.User.ID {
		t.Fatalf("expected token for %s, got %s", resp.User.ID, claims.UserID)
	}
	if sessions.sessions[claims.ID] != resp.User.ID {
		t.Fatalf("expected session stored under jti %s", claims.ID)
	}
	if len(events) != 2 || events[0] != EventSignedUp || events[1] != EventSignedIn {
		t.Fatalf("unexpected events %v", events)
	}
}

func TestSignUpRejectsDuplicateAndWeakPasswords(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := buildTestService(t, repo, nil)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpRequest{Email: "a@example.com", Password: "123"})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for weak password, got %v", err)
	}

	if _, err := svc.SignUp(ctx, SignUpRequest{Email: "a@example.com", Password: "password1"}); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	_, err = svc.SignUp(ctx, SignUpRequest{Email: "A@example.com", Password: "password1"})
	if !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(t, "kim@example.com", "password1")
	svc, _ := buildTestService(t, repo, nil)

	_, err := svc.SignIn(context.Background(), SignInRequest{Email: "kim@example.com", Password: "wrong-pass"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}

	_, err = svc.SignIn(context.Background(), SignInRequest{Email: "nobody@example.com", Password: "password1"})
	if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestSignOutRevokesAndRefreshRotates(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(t, "kim@example.com", "password1")
	svc, sessions := buildTestService(t, repo, nil)
	ctx := context.Background()

	resp, err := svc.SignIn(ctx, SignInRequest{Email: "kim@example.com", Password: "password1"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	refreshed, err := svc.Refresh(ctx, RefreshRequest{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.RefreshToken == resp.RefreshToken {
		t.Fatal("expected rotated refresh token")
	}
	if _, err := svc.Refresh(ctx, RefreshRequest{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected reused refresh token to be rejected, got %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	var signedOut bool
	svc.Subscribe(func(e SessionEvent) { signedOut = signedOut || e.Type == EventSignedOut })
	if err := svc.SignOut(ctx, claims.UserID, claims.ID); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, ok := sessions.sessions[claims.ID]; ok {
		t.Fatal("expected session revoked")
	}
	if !signedOut {
		t.Fatal("expected signed_out event")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := newBroadcaster()
	calls := 0
	unsubscribe := b.subscribe(func(SessionEvent) { calls++ })
	b.publish(SessionEvent{Type: EventSignedIn})
	unsubscribe()
	unsubscribe()
	b.publish(SessionEvent{Type: EventSignedOut})
	if calls != 1 {
		t.Fatalf("expected one delivery, got %d", calls)
	}
}

func TestCurrentUser(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.add(t, "kim@example.com", "password1")
	svc, _ := buildTestService(t, repo, nil)

	dto, err := svc.CurrentUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if dto.Email != user.Email {
		t.Fatalf("unexpected user %+v", dto)
	}
	if _, err := svc.CurrentUser(context.Background(), uuid.New()); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestSignInUpgradesWeakHash(t *testing.T) {
	repo := newStubUserRepo()
	user := repo.add(t, "kim@example.com", "abc123")
	sessions := &stubSessionManager{sessions: map[string]uuid.UUID{}, tokens: map[string]string{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 2, ArgonParallelism: 1},
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "kim@example.com", Password: "abc123"}); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if repo.rehashed != 1 {
		t.Fatalf("expected one rehash, got %d", repo.rehashed)
	}
	if ok, err := security.VerifyPassword("abc123", user.PasswordHash); err != nil || !ok {
		t.Fatalf("upgraded hash should still verify: ok=%v err=%v", ok, err)
	}

	if _, err := svc.SignIn(context.Background(), SignInRequest{Email: "kim@example.com", Password: "abc123"}); err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	if repo.rehashed != 1 {
		t.Fatalf("upgraded hash should not be rehashed again, got %d", repo.rehashed)
	}
}

func buildTestService(t *testing.T, repo *stubUserRepo, profiles profileProvisioner) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{sessions: map[string]uuid.UUID{}, tokens: map[string]string{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		Profiles:       profiles,
		JWTConfig:      testJWT,
		Now:            func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions
}

type stubUserRepo struct {
	mu       sync.Mutex
	users    map[string]*models.User
	rehashed int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: map[string]*models.User{}}
}

func (s *stubUserRepo) add(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{ID: uuid.New(), Email: email, PasswordHash: hash}
	s.users[email] = user
	return user
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := dto.ToModel()
	user.ID = uuid.New()
	s.users[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			user.PasswordHash = hash
			s.rehashed++
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type stubProfiles struct {
	created []uuid.UUID
}

func (s *stubProfiles) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	s.created = append(s.created, userID)
	return &models.Profile{ID: userID}, nil
}

type stubSessionManager struct {
	sessions map[string]uuid.UUID
	tokens   map[string]string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	token := "refresh-" + accessID
	s.sessions[accessID] = userID
	s.tokens[accessID] = token
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error) {
	userID, ok := s.sessions[oldAccessID]
	if !ok || s.tokens[oldAccessID] != provided {
		return session.Rotation{}, session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	delete(s.tokens, oldAccessID)
	next := session.Rotation{AccessID: session.NewAccessID(), UserID: userID}
	next.RefreshToken, _ = s.Generate(ctx, next.AccessID, userID)
	return next, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.sessions, accessID)
	delete(s.tokens, accessID)
	return nil
}
