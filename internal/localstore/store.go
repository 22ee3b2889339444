// Package localstore keeps per-user device state as JSON documents in Redis.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Well-known keys.
const (
	KeyCartItems         = "cartItems"
	KeyChatRooms         = "chatRooms"
	KeyLikedItems        = "likedItems"
	KeyTokenTradeHistory = "tokenTradeHistory"
	KeyPendingOrder      = "pendingOrder"
	KeyUserTokens        = "userTokens"

	chatKeyPrefix = "chat_"
)

// ChatKey is the key holding the transcript for one listing.
func ChatKey(listingID string) string {
	return chatKeyPrefix + listingID
}

// Store reads and writes JSON values scoped to an owner.
type Store interface {
	Get(ctx context.Context, ownerID, key string, dest any) (bool, error)
	Put(ctx context.Context, ownerID, key string, value any) error
	Delete(ctx context.Context, ownerID, key string) error
}

type kv interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	LocalStateKey(ownerID, name string) string
}

type redisStore struct {
	client kv
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by Redis. Entries expire after ttl of inactivity.
func NewRedisStore(client kv, ttl time.Duration) (Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &redisStore{client: client, ttl: ttl}, nil
}

func (s *redisStore) key(ownerID, key string) (string, error) {
	ownerID, key = strings.TrimSpace(ownerID), strings.TrimSpace(key)
	if ownerID == "" || key == "" {
		return "", fmt.Errorf("owner and key are required")
	}
	return s.client.LocalStateKey(ownerID, key), nil
}

func (s *redisStore) Get(ctx context.Context, ownerID, key string, dest any) (bool, error) {
	k, err := s.key(ownerID, key)
	if err != nil {
		return false, err
	}
	raw, err := s.client.Get(ctx, k)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

func (s *redisStore) Put(ctx context.Context, ownerID, key string, value any) error {
	k, err := s.key(ownerID, key)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.client.Set(ctx, k, string(payload), s.ttl)
}

func (s *redisStore) Delete(ctx context.Context, ownerID, key string) error {
	k, err := s.key(ownerID, key)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, k)
}
