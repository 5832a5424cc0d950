package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 48 * time.Hour

type redisHashes interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key, field string, value any) error
	HDel(ctx context.Context, key string, fields ...string) error
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	SessionKey(sessionID string) string
}

// Store keeps storefront session values in a Redis hash per session.
type Store struct {
	redis redisHashes
	ttl   time.Duration
}

// NewStore builds a Redis-backed session store. Every write refreshes the TTL.
func NewStore(client redisHashes, ttl time.Duration) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{redis: client, ttl: ttl}, nil
}

// NewID mints a session identifier.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an identifier minted by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil && len(strings.TrimSpace(id)) == 36
}

func (s *Store) Get(ctx context.Context, sessionID, name string) (string, bool, error) {
	if sessionID == "" {
		return "", false, nil
	}
	value, err := s.redis.HGet(ctx, s.redis.SessionKey(sessionID), name)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read session %s: %w", name, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, sessionID, name, value string) error {
	if sessionID == "" {
		return fmt.Errorf("session id required")
	}
	key := s.redis.SessionKey(sessionID)
	if err := s.redis.HSet(ctx, key, name, value); err != nil {
		return fmt.Errorf("write session %s: %w", name, err)
	}
	if _, err := s.redis.Expire(ctx, key, s.ttl); err != nil {
		return fmt.Errorf("refresh session ttl: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, sessionID, name string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.redis.HDel(ctx, s.redis.SessionKey(sessionID), name); err != nil {
		return fmt.Errorf("clear session %s: %w", name, err)
	}
	return nil
}
