package ranking

import (
	"context"
	"testing"
	"time"

	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *memory.EntrantRepo, email, code string, referredBy *string, minute int, verified bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.Entrant{
		Email:      email,
		RefCode:    code,
		ReferredBy: referredBy,
		CreatedAt:  time.Date(2026, 1, 1, 0, minute, 0, 0, time.UTC),
	}))
	if verified {
		_, err := repo.MarkVerified(ctx, email, "uid-"+code, time.Now())
		require.NoError(t, err)
	}
}

func TestStats_ReferralBoost(t *testing.T) {
	repo := memory.NewEntrantRepo()
	ref := "BR1A2B3C4D"
	seed(t, repo, "early1@example.com", "BR00000001", nil, 0, true)
	seed(t, repo, "early2@example.com", "BR00000002", nil, 1, true)
	seed(t, repo, "a@example.com", ref, nil, 2, true)
	seed(t, repo, "b@example.com", "BR00000003", &ref, 3, false)

	stats, err := NewService(repo, 100).Stats(context.Background(), "a@example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TotalReferrals)
	assert.Equal(t, FinalPosition(3, 1), stats.Position)
	assert.Equal(t, 1, stats.Position)
	assert.Equal(t, 10, stats.Points)
	assert.Equal(t, 1, stats.CurrentRank)
	assert.Equal(t, ref, stats.RefCode)
}

func TestStats_UnverifiedIsNotFound(t *testing.T) {
	repo := memory.NewEntrantRepo()
	seed(t, repo, "a@example.com", "BR00000001", nil, 0, false)

	_, err := NewService(repo, 100).Stats(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStats_UnknownEmail(t *testing.T) {
	_, err := NewService(memory.NewEntrantRepo(), 100).Stats(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLeaderboard_LimitClamped(t *testing.T) {
	repo := memory.NewEntrantRepo()
	for i := 0; i < 5; i++ {
		seed(t, repo, string(rune('a'+i))+"@example.com", "BR0000000"+string(rune('0'+i)), nil, i, true)
	}
	svc := NewService(repo, 3)

	board, err := svc.Leaderboard(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, board, 3)

	board, err = svc.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, board, 2)

	board, err = svc.Leaderboard(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, board, 3)
}

type captureStore struct {
	key string
	v   any
}

func (c *captureStore) PutJSON(_ context.Context, key string, v any) (string, error) {
	c.key, c.v = key, v
	return "s3://bucket/" + key, nil
}

func TestSnapshotter_Publish(t *testing.T) {
	repo := memory.NewEntrantRepo()
	seed(t, repo, "a@example.com", "BR00000001", nil, 0, true)
	store := &captureStore{}

	require.NoError(t, NewSnapshotter(NewService(repo, 10), store, time.Minute).Publish(context.Background()))
	assert.Equal(t, SnapshotKey, store.key)
	snap, ok := store.v.(snapshot)
	require.True(t, ok)
	assert.Len(t, snap.Entries, 1)
}

func TestSnapshotter_RunStopsOnCancel(t *testing.T) {
	store := &captureStore{}
	s := NewSnapshotter(NewService(memory.NewEntrantRepo(), 10), store, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
