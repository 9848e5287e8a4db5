package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/onboardhq/apiserver/internal/store"
	"github.com/onboardhq/apiserver/types"
)

// SessionTTL is the fixed session lifetime. Sessions are not renewed on
// activity.
const SessionTTL = 24 * time.Hour

const sessionTokenBytes = 32

// SessionRepository defines persistence operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session types.Session) error
	Get(ctx context.Context, token string) (types.Session, error)
	Delete(ctx context.Context, token string) error
}

// SessionService issues and resolves opaque session tokens.
type SessionService struct {
	repo SessionRepository
	now  func() time.Time
}

func NewSessionService(repo SessionRepository) *SessionService {
	return &SessionService{repo: repo, now: time.Now}
}

// Create establishes a session for the given user and returns it.
func (s *SessionService) Create(ctx context.Context, userID int) (types.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return types.Session{}, err
	}

	now := s.now()
	session := types.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionTTL),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return types.Session{}, err
	}
	return session, nil
}

// Resolve returns the session for token, treating expired sessions as
// absent. Expired rows are deleted on access; there is no background
// sweeper.
func (s *SessionService) Resolve(ctx context.Context, token string) (types.Session, error) {
	session, err := s.repo.Get(ctx, token)
	if err != nil {
		return types.Session{}, err
	}
	if session.Expired(s.now()) {
		_ = s.repo.Delete(ctx, token)
		return types.Session{}, store.ErrNotFound
	}
	return session, nil
}

// Delete revokes the session for token. Missing sessions are not an error;
// logout is idempotent.
func (s *SessionService) Delete(ctx context.Context, token string) error {
	if err := s.repo.Delete(ctx, token); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
