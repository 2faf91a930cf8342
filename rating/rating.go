// Package rating computes point deltas for a decided ranked match. The
// computation is pure and deterministic so any history row can be audited by
// re-running it with the same inputs.
package rating

import "github.com/Dosada05/ranked-portal/models"

const (
	BaseGain    = 25
	ReducedGain = 15
	UpsetGain   = 35
	// RankGapThreshold is the ordinal gap from which gains are adjusted.
	RankGapThreshold = 2
)

// Result holds the signed deltas for both players.
type Result struct {
	WinnerDelta int `json:"winner_delta"`
	LoserDelta  int `json:"loser_delta"`
	// NominalLoss is the loss before clamping at zero points.
	NominalLoss int `json:"nominal_loss"`
}

// Gain returns the winner's gain for the given ranks.
func Gain(winnerRank, loserRank models.Rank) int {
	gap := int(winnerRank) - int(loserRank)
	switch {
	case gap >= RankGapThreshold:
		return ReducedGain
	case -gap >= RankGapThreshold:
		return UpsetGain
	default:
		return BaseGain
	}
}

// Loss returns 80% of gain, floored.
func Loss(gain int) int {
	return gain * 4 / 5
}

// Compute returns the deltas for a winner and loser. loserPoints is the
// loser's current total; the loss never takes it below zero.
func Compute(winnerRank, loserRank models.Rank, loserPoints int) Result {
	gain := Gain(winnerRank, loserRank)
	loss := Loss(gain)
	applied := loss
	if applied > loserPoints {
		applied = max(loserPoints, 0)
	}
	return Result{
		WinnerDelta: gain,
		LoserDelta:  -applied,
		NominalLoss: loss,
	}
}

// tier is the lower point bound of a rank.
type tier struct {
	rank models.Rank
	min  int
}

var tiers = []tier{
	{models.RankChampion, 2000},
	{models.RankDiamond, 1500},
	{models.RankPlatinum, 1000},
	{models.RankGold, 600},
	{models.RankSilver, 300},
	{models.RankBronze, 0},
}

// RankFor maps a point total to a rank. Players without a ranked match stay
// unranked regardless of points.
func RankFor(points, rankedMatches int) models.Rank {
	if rankedMatches <= 0 {
		return models.RankUnranked
	}
	for _, t := range tiers {
		if points >= t.min {
			return t.rank
		}
	}
	return models.RankBronze
}
