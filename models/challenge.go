package models

import "time"

type ChallengeStatus string

const (
	ChallengeStatusPending   ChallengeStatus = "pending"
	ChallengeStatusAccepted  ChallengeStatus = "accepted"
	ChallengeStatusDeclined  ChallengeStatus = "declined"
	ChallengeStatusReported  ChallengeStatus = "reported"
	ChallengeStatusCompleted ChallengeStatus = "completed"
)

// Challenge is a standalone ranked duel between two users outside any
// bracket. It shares the rating rules of tournament matches.
type Challenge struct {
	ID               int             `json:"id"`
	ChallengerID     int             `json:"challenger_id"`
	OpponentID       int             `json:"opponent_id"`
	Status           ChallengeStatus `json:"status"`
	Message          *string         `json:"message,omitempty"`
	ReportedWinnerID *int            `json:"reported_winner_id,omitempty"`
	ReportedBy       *int            `json:"reported_by,omitempty"`
	ConfirmedBy      *int            `json:"confirmed_by,omitempty"`
	WinnerID         *int            `json:"winner_id,omitempty"`
	Version          int             `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}

func (c *Challenge) HasUser(userID int) bool {
	return c.ChallengerID == userID || c.OpponentID == userID
}

// Other returns the opposing user of userID.
func (c *Challenge) Other(userID int) int {
	if c.ChallengerID == userID {
		return c.OpponentID
	}
	return c.ChallengerID
}
