package ranking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-waitlist-api/internal/domain"
)

type entrantStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.Entrant, error)
	CountReferrals(ctx context.Context, refCode string) (int, error)
	CountVerifiedBefore(ctx context.Context, t time.Time) (int, error)
	ListVerified(ctx context.Context) ([]domain.Entrant, error)
	ReferralTally(ctx context.Context) (map[string]int, error)
}

type Service interface {
	Stats(ctx context.Context, email string) (*domain.Stats, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

type service struct {
	entrants entrantStore
	maxSize  int
}

func NewService(entrants entrantStore, maxSize int) Service {
	if maxSize < 1 {
		maxSize = 100
	}
	return &service{entrants: entrants, maxSize: maxSize}
}

// Stats is only defined for verified entrants.
func (s *service) Stats(ctx context.Context, email string) (*domain.Stats, error) {
	e, err := s.entrants.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !e.IsVerified {
		return nil, fmt.Errorf("entrant not verified: %w", domain.ErrNotFound)
	}

	refs, err := s.entrants.CountReferrals(ctx, e.RefCode)
	if err != nil {
		return nil, err
	}
	earlier, err := s.entrants.CountVerifiedBefore(ctx, e.CreatedAt)
	if err != nil {
		return nil, err
	}
	verified, err := s.entrants.ListVerified(ctx)
	if err != nil {
		return nil, err
	}
	tally, err := s.entrants.ReferralTally(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		Email:          e.Email,
		RefCode:        e.RefCode,
		Position:       FinalPosition(1+earlier, refs),
		CurrentRank:    DenseRank(refs, verified, tally),
		TotalReferrals: refs,
		Points:         Points(refs),
	}, nil
}

func (s *service) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit < 1 || limit > s.maxSize {
		limit = s.maxSize
	}
	verified, err := s.entrants.ListVerified(ctx)
	if err != nil {
		return nil, err
	}
	tally, err := s.entrants.ReferralTally(ctx)
	if err != nil {
		return nil, err
	}
	board := Leaderboard(verified, tally)
	if len(board) > limit {
		board = board[:limit]
	}
	return board, nil
}
