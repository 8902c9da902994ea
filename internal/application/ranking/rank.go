// Package ranking derives positions and the public leaderboard from the
// live entrant set. Nothing here is persisted.
package ranking

import (
	"sort"

	"github.com/go-waitlist-api/internal/domain"
	"github.com/go-waitlist-api/internal/pkg/mask"
)

const (
	// BoostPerReferral is how many places each direct referral moves an entrant up.
	BoostPerReferral = 5
	// PointsPerReferral converts referrals into leaderboard points.
	PointsPerReferral = 10
)

// FinalPosition applies the referral boost to a signup-order position.
// The result is never below 1.
func FinalPosition(base, referrals int) int {
	pos := base - referrals*BoostPerReferral
	if pos < 1 {
		return 1
	}
	return pos
}

func Points(referrals int) int {
	return referrals * PointsPerReferral
}

// Leaderboard orders verified entrants by referral count (desc), breaking
// display ties by signup time, and assigns dense ranks: equal counts share a
// rank and the next distinct count takes the following integer.
func Leaderboard(verified []domain.Entrant, tally map[string]int) []domain.LeaderboardEntry {
	rows := make([]domain.Entrant, len(verified))
	copy(rows, verified)
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := tally[rows[i].RefCode], tally[rows[j].RefCode]
		if ri != rj {
			return ri > rj
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	out := make([]domain.LeaderboardEntry, 0, len(rows))
	rank, prev := 0, -1
	for _, e := range rows {
		refs := tally[e.RefCode]
		if refs != prev {
			rank++
			prev = refs
		}
		out = append(out, domain.LeaderboardEntry{
			CurrentRank:    rank,
			MaskedEmail:    mask.Email(e.Email),
			RefCode:        e.RefCode,
			TotalReferrals: refs,
			Points:         Points(refs),
		})
	}
	return out
}

// DenseRank returns the leaderboard rank an entrant with the given referral
// count holds among verified.
func DenseRank(referrals int, verified []domain.Entrant, tally map[string]int) int {
	higher := make(map[int]struct{})
	for _, e := range verified {
		if n := tally[e.RefCode]; n > referrals {
			higher[n] = struct{}{}
		}
	}
	return len(higher) + 1
}
