package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

type SessionRepo struct {
	mu   sync.RWMutex
	byID map[string]domain.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{byID: make(map[string]domain.Session)}
}

func (r *SessionRepo) Put(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.SessionID] = *s
	return nil
}

func (r *SessionRepo) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (r *SessionRepo) GetByRefreshToken(_ context.Context, token string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byID {
		if s.RefreshToken != token {
			continue
		}
		if !s.Enable {
			return nil, fmt.Errorf("session disabled: %w", domain.ErrUnauthorized)
		}
		return &s, nil
	}
	return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
}

func (r *SessionRepo) RotateRefreshToken(_ context.Context, sessionID, newToken string, newExpiry int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	s.RefreshToken = newToken
	s.RefreshExpiresAt = newExpiry
	s.UpdatedAt = time.Now().UTC()
	r.byID[sessionID] = s
	return nil
}
