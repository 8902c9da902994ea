package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-waitlist-api/internal/domain"
)

type verificationKey struct{ subject, typ string }

type VerificationRepo struct {
	mu    sync.Mutex
	items map[verificationKey]domain.Verification
}

func NewVerificationRepo() *VerificationRepo {
	return &VerificationRepo{items: make(map[verificationKey]domain.Verification)}
}

func (r *VerificationRepo) Put(_ context.Context, v *domain.Verification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[verificationKey{v.Subject, v.Type}] = *v
	return nil
}

func (r *VerificationRepo) Get(_ context.Context, subject, verType string) (*domain.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[verificationKey{subject, verType}]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	return &v, nil
}

func (r *VerificationRepo) Consume(_ context.Context, subject, verType string) (*domain.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := verificationKey{subject, verType}
	v, ok := r.items[k]
	if !ok {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	delete(r.items, k)
	return &v, nil
}

// ConsumeCode deletes the row only while it still holds code.
func (r *VerificationRepo) ConsumeCode(_ context.Context, subject, verType, code string) (*domain.Verification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := verificationKey{subject, verType}
	v, ok := r.items[k]
	if !ok || v.Code != code {
		return nil, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	delete(r.items, k)
	return &v, nil
}

// CountFailure bumps the attempt counter of the row holding code and returns
// the new count.
func (r *VerificationRepo) CountFailure(_ context.Context, subject, verType, code string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := verificationKey{subject, verType}
	v, ok := r.items[k]
	if !ok || v.Code != code {
		return 0, fmt.Errorf("verification not found: %w", domain.ErrNotFound)
	}
	v.Attempts++
	r.items[k] = v
	return v.Attempts, nil
}
