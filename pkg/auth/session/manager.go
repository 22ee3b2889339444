// Package session keeps the refresh side of a sign-in in Redis. Each access
// token id (jti) maps to the user and a digest of the refresh token issued
// with it; deleting the entry signs the access token out.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/geonmarket-backend/pkg/config"
	pkgredis "github.com/angelmondragon/geonmarket-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware asks on every request.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// entry is stored as JSON. Only the refresh token digest is kept.
type entry struct {
	UserID       uuid.UUID `json:"user_id"`
	RefreshHash  string    `json:"refresh_hash"`
	IssuedAtUnix int64     `json:"issued_at"`
}

// Rotation is the outcome of a successful refresh.
type Rotation struct {
	AccessID     string
	RefreshToken string
	UserID       uuid.UUID
}

type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager requires the refresh lifetime to outlast the access token.
func NewManager(client *pkgredis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return newManager(client, cfg)
}

func newManager(s store, cfg config.JWTConfig) (*Manager, error) {
	ttl := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= access {
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", ttl, access)
	}
	return &Manager{store: s, ttl: ttl, now: time.Now}, nil
}

// NewAccessID mints the jti shared by an access token and its session entry.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errMissingAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.save(ctx, accessID, entry{UserID: userID, RefreshHash: digest(token), IssuedAtUnix: m.now().Unix()}); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate trades a refresh token for a new session. The old session is
// removed, so a refresh token works once.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, refreshToken string) (Rotation, error) {
	if strings.TrimSpace(oldAccessID) == "" || refreshToken == "" {
		return Rotation{}, ErrInvalidRefreshToken
	}
	current, err := m.load(ctx, oldAccessID)
	if errors.Is(err, goredis.Nil) {
		return Rotation{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return Rotation{}, err
	}
	if subtle.ConstantTimeCompare([]byte(current.RefreshHash), []byte(digest(refreshToken))) != 1 {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := Rotation{AccessID: NewAccessID(), UserID: current.UserID}
	if next.RefreshToken, err = m.Generate(ctx, next.AccessID, current.UserID); err != nil {
		return Rotation{}, err
	}
	if err := m.store.Del(ctx, m.store.AccessSessionKey(oldAccessID)); err != nil {
		return Rotation{}, err
	}
	return next, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errMissingAccessID
	}
	_, err := m.load(ctx, accessID)
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) save(ctx context.Context, accessID string, e entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(raw), m.ttl)
}

func (m *Manager) load(ctx context.Context, accessID string) (entry, error) {
	raw, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	if err != nil {
		return entry{}, err
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return entry{}, fmt.Errorf("decode session: %w", err)
	}
	return e, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
