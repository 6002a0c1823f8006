package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "session:"

var (
	// ErrRedisUnavailable wraps every backend failure returned by the store.
	ErrRedisUnavailable = errors.New("redis unavailable")
	// ErrNotFound is returned when the session key is absent or expired.
	ErrNotFound = errors.New("session not found")
	// ErrIDCollision is returned when Set targets a key that already exists.
	ErrIDCollision = errors.New("session id already in use")
	// ErrInvalidTTL is returned when Set is called with a non-positive TTL.
	ErrInvalidTTL = errors.New("session ttl must be positive")
)

// Store persists sessions in Redis as plain string keys.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore builds a Store over an existing client. The client is owned by
// the caller; the store never closes it. An empty prefix selects
// DefaultPrefix.
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		redis:  client,
		prefix: prefix,
	}
}

// Key returns the Redis key holding sessionID.
func (s *Store) Key(sessionID string) string {
	return s.prefix + sessionID
}

// Set writes sessionID -> accessToken with the given TTL. The write uses NX
// so an existing session can never be overwritten.
func (s *Store) Set(ctx context.Context, sessionID, accessToken string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}

	ok, err := s.redis.SetNX(ctx, s.Key(sessionID), accessToken, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if !ok {
		return ErrIDCollision
	}
	return nil
}

// Get returns the access token bound to sessionID. It is a plain GET and
// leaves the remaining TTL untouched.
func (s *Store) Get(ctx context.Context, sessionID string) (string, error) {
	token, err := s.redis.Get(ctx, s.Key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, nil
}

// Delete removes sessionID and reports whether a key existed. Deleting an
// unknown session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.Key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// TTL returns the remaining lifetime of sessionID, or ErrNotFound.
func (s *Store) TTL(ctx context.Context, sessionID string) (time.Duration, error) {
	d, err := s.redis.TTL(ctx, s.Key(sessionID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	// Redis answers -2 for a missing key and -1 for a key without expiry;
	// sessions are always written with a TTL.
	if d < 0 {
		return 0, ErrNotFound
	}
	return d, nil
}

// Ping measures one round trip to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
