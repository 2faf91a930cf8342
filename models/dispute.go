package models

import "time"

type DisputeStatus string

const (
	DisputeStatusPending  DisputeStatus = "pending"
	DisputeStatusResolved DisputeStatus = "resolved"
)

type DisputeResolution string

const (
	ResolutionPlayer1Wins DisputeResolution = "player1_wins"
	ResolutionPlayer2Wins DisputeResolution = "player2_wins"
	ResolutionAnnul       DisputeResolution = "annul"
)

func (r DisputeResolution) Valid() bool {
	switch r {
	case ResolutionPlayer1Wins, ResolutionPlayer2Wins, ResolutionAnnul:
		return true
	}
	return false
}

// Dispute is a contested report. A resolved dispute is never modified again.
type Dispute struct {
	ID              int                `json:"id"`
	MatchID         int                `json:"match_id"`
	TournamentID    int                `json:"tournament_id"`
	ReporterID      int                `json:"reporter_id"`
	Reason          string             `json:"reason"`
	EvidenceRef     *string            `json:"evidence_ref,omitempty"`
	EvidenceURL     *string            `json:"evidence_url,omitempty"`
	Status          DisputeStatus      `json:"status"`
	Resolution      *DisputeResolution `json:"resolution,omitempty"`
	ResolutionNotes *string            `json:"resolution_notes,omitempty"`
	ResolvedBy      *int               `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time         `json:"resolved_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}
