package domain

// Stats is the per-entrant view served to the dashboard and the OTP lookup.
// Position is the signup-order position with referral boost; CurrentRank is
// the public leaderboard's dense rank. They are different numbers.
type Stats struct {
	Email          string `json:"email"`
	RefCode        string `json:"refCode"`
	Position       int    `json:"position"`
	CurrentRank    int    `json:"currentRank"`
	TotalReferrals int    `json:"totalReferrals"`
	Points         int    `json:"points"`
}

// LeaderboardEntry is one row of the public leaderboard.
type LeaderboardEntry struct {
	CurrentRank    int    `json:"currentRank"`
	MaskedEmail    string `json:"maskedEmail"`
	RefCode        string `json:"refCode"`
	TotalReferrals int    `json:"totalReferrals"`
	Points         int    `json:"points"`
}
