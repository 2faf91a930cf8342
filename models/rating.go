package models

import "time"

// Rank is an ordinal tier; the ordinal gap between two players drives the
// size of a rating delta.
type Rank int

const (
	RankUnranked Rank = iota
	RankBronze
	RankSilver
	RankGold
	RankPlatinum
	RankDiamond
	RankChampion
)

var rankNames = [...]string{"unranked", "bronze", "silver", "gold", "platinum", "diamond", "champion"}

func (r Rank) String() string {
	if r < RankUnranked || r > RankChampion {
		return "unknown"
	}
	return rankNames[r]
}

func (r Rank) Valid() bool {
	return r >= RankUnranked && r <= RankChampion
}

type RankingReason string

const (
	ReasonTournamentMatch RankingReason = "tournament_match"
	ReasonChallenge       RankingReason = "challenge"
)

// PlayerRating holds a user's aggregate ranked standing.
type PlayerRating struct {
	UserID        int       `json:"user_id"`
	Points        int       `json:"points"`
	Rank          Rank      `json:"rank"`
	Wins          int       `json:"wins"`
	Losses        int       `json:"losses"`
	WinStreak     int       `json:"win_streak"`
	BestStreak    int       `json:"best_streak"`
	RankedMatches int       `json:"ranked_matches"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RankingChange is an append-only audit row; totals are reconstructable
// from the sequence of changes per user.
type RankingChange struct {
	ID          int           `json:"id"`
	UserID      int           `json:"user_id"`
	OldPoints   int           `json:"old_points"`
	NewPoints   int           `json:"new_points"`
	MatchID     *int          `json:"match_id,omitempty"`
	ChallengeID *int          `json:"challenge_id,omitempty"`
	Reason      RankingReason `json:"reason"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Delta returns the signed point change.
func (c RankingChange) Delta() int {
	return c.NewPoints - c.OldPoints
}
