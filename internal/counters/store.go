// Package counters keeps per-listing view and like counters in Redis.
package counters

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/angelmondragon/geonmarket-backend/internal/ranking"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Incr(ctx context.Context, key string) (int64, error)
	DecrFloor(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// Store implements ranking.CounterStore.
type Store struct {
	client kv
}

var _ ranking.CounterStore = (*Store)(nil)

func NewStore(client kv) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &Store{client: client}, nil
}

func (s *Store) key(kind ranking.Kind, id string) (string, error) {
	if kind != ranking.KindViews && kind != ranking.KindLikes {
		return "", fmt.Errorf("unknown counter kind %q", kind)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid listing id %q", id)
	}
	return s.client.CounterKey(string(kind) + ":" + id), nil
}

func (s *Store) Increment(ctx context.Context, kind ranking.Kind, id string) (int64, error) {
	key, err := s.key(kind, id)
	if err != nil {
		return 0, err
	}
	return s.client.Incr(ctx, key)
}

// Decrement lowers the counter, never below zero.
func (s *Store) Decrement(ctx context.Context, kind ranking.Kind, id string) (int64, error) {
	key, err := s.key(kind, id)
	if err != nil {
		return 0, err
	}
	return s.client.DecrFloor(ctx, key)
}

func (s *Store) Get(ctx context.Context, kind ranking.Kind, id string) (int64, bool, error) {
	key, err := s.key(kind, id)
	if err != nil {
		return 0, false, err
	}
	raw, err := s.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("counter %s holds %q: %w", key, raw, err)
	}
	return value, true, nil
}

// SeedIfAbsent stores value unless the counter exists and returns whichever value is stored.
func (s *Store) SeedIfAbsent(ctx context.Context, kind ranking.Kind, id string, value int64) (int64, error) {
	key, err := s.key(kind, id)
	if err != nil {
		return 0, err
	}
	set, err := s.client.SetNX(ctx, key, value, 0)
	if err != nil {
		return 0, err
	}
	if set {
		return value, nil
	}
	current, _, err := s.Get(ctx, kind, id)
	return current, err
}
