package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found")

// RedisSessionStore persists session records in Redis with TTL.
// Expiration is handled by Redis; no manual cleanup is needed.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// getSessionKey generates the Redis key for a session record
func getSessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// getUserSessionsKey generates the Redis key for a user's session set
func getUserSessionsKey(userID uuid.UUID) string {
	return fmt.Sprintf("user_sessions:%s", userID.String())
}

// Create stores a session record with the given TTL
func (s *RedisSessionStore) Create(ctx context.Context, session *Session, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	sessionKey := getSessionKey(session.ID)
	userSessionsKey := getUserSessionsKey(session.UserID)

	pipe := s.client.Pipeline()

	pipe.HSet(ctx, sessionKey, map[string]interface{}{
		"user_id":    session.UserID.String(),
		"email":      session.Email,
		"name":       session.Name,
		"remember":   strconv.FormatBool(session.Remember),
		"created_at": session.CreatedAt.Unix(),
	})
	pipe.Expire(ctx, sessionKey, ttl)

	// Track the session id on the user's set so all of a user's sessions
	// can be enumerated. The set carries the longest TTL seen.
	pipe.SAdd(ctx, userSessionsKey, session.ID)
	pipe.Expire(ctx, userSessionsKey, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

// Get retrieves a session record by id
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := s.client.HGetAll(ctx, getSessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if len(data) == 0 {
		return nil, ErrSessionNotFound
	}

	userID, err := uuid.Parse(data["user_id"])
	if err != nil {
		return nil, fmt.Errorf("corrupt session record: %w", err)
	}

	remember, _ := strconv.ParseBool(data["remember"])

	createdAtUnix, _ := strconv.ParseInt(data["created_at"], 10, 64)

	return &Session{
		ID:        id,
		UserID:    userID,
		Email:     data["email"],
		Name:      data["name"],
		Remember:  remember,
		CreatedAt: time.Unix(createdAtUnix, 0),
	}, nil
}

// Extend resets the TTL of a session record. Used for the sliding window
// of non-remembered sessions.
func (s *RedisSessionStore) Extend(ctx context.Context, id string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, getSessionKey(id), ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Delete removes a session record. Deleting a missing session is not an
// error so logout stays idempotent.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	sessionKey := getSessionKey(id)

	// Look up the owner so the user set entry can be removed too
	userIDStr, err := s.client.HGet(ctx, sessionKey, "user_id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to look up session owner: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Del(ctx, sessionKey)
	if userID, parseErr := uuid.Parse(userIDStr); parseErr == nil {
		pipe.SRem(ctx, getUserSessionsKey(userID), id)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
