// Package memory provides process-local repositories with the same
// uniqueness and conditional-update semantics as the DynamoDB and Postgres
// backends. It backs STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

// EntrantRepo stores waitlist entrants keyed by email with a unique ref_code index.
type EntrantRepo struct {
	mu       sync.RWMutex
	byEmail  map[string]domain.Entrant
	refCodes map[string]string // ref_code -> email
}

func NewEntrantRepo() *EntrantRepo {
	return &EntrantRepo{
		byEmail:  make(map[string]domain.Entrant),
		refCodes: make(map[string]string),
	}
}

func (r *EntrantRepo) GetByEmail(_ context.Context, email string) (*domain.Entrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("entrant not found: %w", domain.ErrNotFound)
	}
	return &e, nil
}

func (r *EntrantRepo) Create(_ context.Context, e *domain.Entrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[e.Email]; ok {
		return fmt.Errorf("email already on waitlist: %w", domain.ErrConflict)
	}
	if _, ok := r.refCodes[e.RefCode]; ok {
		return domain.ErrRefCodeTaken
	}
	r.byEmail[e.Email] = *e
	r.refCodes[e.RefCode] = e.Email
	return nil
}

func (r *EntrantRepo) MarkVerified(_ context.Context, email, userID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byEmail[email]
	if !ok {
		return false, fmt.Errorf("entrant not found: %w", domain.ErrNotFound)
	}
	if e.IsVerified {
		return false, nil
	}
	e.IsVerified = true
	e.VerifiedAt = &at
	e.UserID = &userID
	r.byEmail[email] = e
	return true, nil
}

func (r *EntrantRepo) CountReferrals(_ context.Context, refCode string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.byEmail {
		if e.ReferredBy != nil && *e.ReferredBy == refCode {
			n++
		}
	}
	return n, nil
}

func (r *EntrantRepo) CountVerifiedBefore(_ context.Context, t time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, e := range r.byEmail {
		if e.IsVerified && e.CreatedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func (r *EntrantRepo) ListVerified(_ context.Context) ([]domain.Entrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Entrant, 0, len(r.byEmail))
	for _, e := range r.byEmail {
		if e.IsVerified {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *EntrantRepo) ReferralTally(_ context.Context) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tally := make(map[string]int)
	for _, e := range r.byEmail {
		if e.ReferredBy != nil && *e.ReferredBy != "" {
			tally[*e.ReferredBy]++
		}
	}
	return tally, nil
}
