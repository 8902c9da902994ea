package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

type SubscriberRepo struct {
	mu    sync.RWMutex
	items map[string]domain.Subscriber
}

func NewSubscriberRepo() *SubscriberRepo {
	return &SubscriberRepo{items: make(map[string]domain.Subscriber)}
}

func (r *SubscriberRepo) Get(_ context.Context, email string) (*domain.Subscriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[email]
	if !ok {
		return nil, fmt.Errorf("subscriber not found: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (r *SubscriberRepo) Upsert(_ context.Context, s *domain.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.items[s.Email]; ok {
		s.CreatedAt = prev.CreatedAt
	}
	r.items[s.Email] = *s
	return nil
}

func (r *SubscriberRepo) Deactivate(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[email]
	if !ok {
		return nil
	}
	s.IsActive = false
	s.UpdatedAt = time.Now().UTC()
	r.items[email] = s
	return nil
}
