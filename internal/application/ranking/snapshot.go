package ranking

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

// SnapshotKey is the object key the leaderboard snapshot is written to.
const SnapshotKey = "leaderboard/top.json"

type jsonStore interface {
	PutJSON(ctx context.Context, key string, v any) (string, error)
}

type snapshot struct {
	GeneratedAt time.Time                 `json:"generatedAt"`
	Entries     []domain.LeaderboardEntry `json:"entries"`
}

// Snapshotter periodically publishes the leaderboard to object storage so
// static pages can serve it without hitting the API.
type Snapshotter struct {
	svc      Service
	store    jsonStore
	interval time.Duration
}

func NewSnapshotter(svc Service, store jsonStore, interval time.Duration) *Snapshotter {
	return &Snapshotter{svc: svc, store: store, interval: interval}
}

// Run writes a snapshot immediately and then every interval until ctx is done.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := s.Publish(ctx); err != nil {
			slog.Warn("leaderboard snapshot failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Snapshotter) Publish(ctx context.Context) error {
	board, err := s.svc.Leaderboard(ctx, 0)
	if err != nil {
		return err
	}
	url, err := s.store.PutJSON(ctx, SnapshotKey, snapshot{GeneratedAt: time.Now().UTC(), Entries: board})
	if err != nil {
		return err
	}
	slog.Debug("leaderboard snapshot written", "url", url, "entries", len(board))
	return nil
}
