package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// Identity is the server-side record of a logged-in browser session.
type Identity struct {
	SessionID string `json:"session_id"`
	UserID    uint   `json:"user_id"`
	IsAdmin   bool   `json:"is_admin"`
}

// SessionStore keeps auth sessions in Redis, keyed by a random session id.
// A per-user index set makes it possible to revoke every session a user
// holds when an admin blocks or deletes the account.
type SessionStore struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewSessionStore(client *redisv9.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Register(ctx context.Context, userID uint, isAdmin bool) (string, error) {
	identity := Identity{
		SessionID: uuid.NewString(),
		UserID:    userID,
		IsAdmin:   isAdmin,
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("marshal auth session failed: %w", err)
	}
	if err := s.client.Set(ctx, s.sessionKey(identity.SessionID), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set auth session failed: %w", err)
	}
	if err := s.client.SAdd(ctx, s.userKey(userID), identity.SessionID).Err(); err != nil {
		return "", fmt.Errorf("redis index auth session failed: %w", err)
	}
	// Keep the index alive at least as long as the newest session in it.
	_ = s.client.Expire(ctx, s.userKey(userID), s.ttl).Err()

	return identity.SessionID, nil
}

// Get returns nil without error when the session is unknown, expired, or has
// been revoked.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*Identity, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(sessionID)).Result()
	if err == redisv9.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get auth session failed: %w", err)
	}

	var identity Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return nil, fmt.Errorf("unmarshal auth session failed: %w", err)
	}
	return &identity, nil
}

// Revoke drops a single session. Unknown ids are a no-op so logout stays
// idempotent.
func (s *SessionStore) Revoke(ctx context.Context, sessionID string) error {
	identity, err := s.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if identity == nil {
		return nil
	}

	if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete auth session failed: %w", err)
	}
	if err := s.client.SRem(ctx, s.userKey(identity.UserID), sessionID).Err(); err != nil {
		return fmt.Errorf("redis unindex auth session failed: %w", err)
	}
	return nil
}

// RevokeUser drops every active session the user holds.
func (s *SessionStore) RevokeUser(ctx context.Context, userID uint) error {
	sessionIDs, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("redis list user sessions failed: %w", err)
	}

	for _, sessionID := range sessionIDs {
		if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
			return fmt.Errorf("redis delete auth session failed: %w", err)
		}
	}
	if err := s.client.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete user session index failed: %w", err)
	}
	return nil
}

func (s *SessionStore) sessionKey(sessionID string) string {
	return "auth:session:" + sessionID
}

func (s *SessionStore) userKey(userID uint) string {
	return fmt.Sprintf("auth:user:%d:sessions", userID)
}
