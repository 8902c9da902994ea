package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

type IdentityRepo struct {
	mu      sync.RWMutex
	byID    map[string]domain.Identity
	byEmail map[string]string
}

func NewIdentityRepo() *IdentityRepo {
	return &IdentityRepo{byID: make(map[string]domain.Identity), byEmail: make(map[string]string)}
}

func (r *IdentityRepo) Create(_ context.Context, i *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[i.Email]; ok {
		return fmt.Errorf("identity already exists: %w", domain.ErrConflict)
	}
	r.byID[i.IdentityID] = *i
	r.byEmail[i.Email] = i.IdentityID
	return nil
}

func (r *IdentityRepo) Get(_ context.Context, identityID string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[identityID]
	if !ok {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	return &i, nil
}

func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	return r.Get(ctx, id)
}

func (r *IdentityRepo) MarkSignedIn(_ context.Context, identityID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.byID[identityID]
	if !ok {
		return fmt.Errorf("identity not found: %w", domain.ErrNotFound)
	}
	if i.EmailConfirmedAt == nil {
		i.EmailConfirmedAt = &at
	}
	i.LastSignInAt = &at
	i.UpdatedAt = at
	r.byID[identityID] = i
	return nil
}
