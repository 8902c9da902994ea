// Package notify delivers verification events to waiting clients.
//
// Delivery is best effort: a subscriber that is not ready to receive misses
// the event, and callers rely on polling the entrant row for correctness.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-waitlist-api/internal/domain"
)

// Hub is an in-process pub/sub keyed by email.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan domain.VerificationEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan domain.VerificationEvent]struct{})}
}

// Subscribe registers interest in events for email. The returned cancel func
// must be called to release the subscription.
func (h *Hub) Subscribe(email string) (<-chan domain.VerificationEvent, func()) {
	ch := make(chan domain.VerificationEvent, 1)
	h.mu.Lock()
	if h.subs[email] == nil {
		h.subs[email] = make(map[chan domain.VerificationEvent]struct{})
	}
	h.subs[email][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[email], ch)
			if len(h.subs[email]) == 0 {
				delete(h.subs, email)
			}
			h.mu.Unlock()
		})
	}
}

// Publish never blocks.
func (h *Hub) Publish(_ context.Context, ev domain.VerificationEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.Email] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) subscribers(email string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[email])
}

// Publisher is anything that can carry a verification event.
type Publisher interface {
	Publish(ctx context.Context, ev domain.VerificationEvent) error
}

// Fanout forwards each event to every sink and logs failures.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev domain.VerificationEvent) error {
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			slog.Warn("verification event not delivered", "type", ev.Type, "err", err)
		}
	}
	return nil
}
