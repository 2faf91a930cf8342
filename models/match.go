package models

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusReported  MatchStatus = "reported"
	MatchStatusDisputed  MatchStatus = "disputed"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusBye       MatchStatus = "bye"
)

// Valid reports whether s is one of the known match statuses.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchStatusPending, MatchStatusReported, MatchStatusDisputed, MatchStatusCompleted, MatchStatusBye:
		return true
	}
	return false
}

const (
	SlotPlayer1 = 1
	SlotPlayer2 = 2
)

// TournamentMatch is one edge of a single-elimination bracket and the unit
// of mutual exclusion for result reporting. Version is bumped on every write.
type TournamentMatch struct {
	ID           int `json:"id"`
	TournamentID int `json:"tournament_id"`
	Round        int `json:"round"`
	MatchNumber  int `json:"match_number"`

	Player1ID    *int `json:"player1_id,omitempty"`
	Player2ID    *int `json:"player2_id,omitempty"`
	Player1Score int  `json:"player1_score"`
	Player2Score int  `json:"player2_score"`

	Status           MatchStatus `json:"status"`
	ReportedWinnerID *int        `json:"reported_winner_id,omitempty"`
	ReportedBy       *int        `json:"reported_by,omitempty"`
	ReportEvidence   *string     `json:"report_evidence,omitempty"`
	ReportNotes      *string     `json:"report_notes,omitempty"`
	ReportedAt       *time.Time  `json:"reported_at,omitempty"`
	ConfirmedBy      *int        `json:"confirmed_by,omitempty"`
	ConfirmedAt      *time.Time  `json:"confirmed_at,omitempty"`
	WinnerID         *int        `json:"winner_id,omitempty"`
	IsDisputed       bool        `json:"is_disputed"`

	NextMatchID  *int `json:"next_match_id,omitempty"`
	WinnerToSlot *int `json:"winner_to_slot,omitempty"`
	// ByeSlot marks a slot that no earlier match feeds.
	ByeSlot *int `json:"bye_slot,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasParticipant reports whether participantID occupies one of the slots.
func (m *TournamentMatch) HasParticipant(participantID int) bool {
	return m.SlotOf(participantID) != 0
}

// SlotOf returns 1 or 2 for the slot holding participantID, 0 otherwise.
func (m *TournamentMatch) SlotOf(participantID int) int {
	if m.Player1ID != nil && *m.Player1ID == participantID {
		return SlotPlayer1
	}
	if m.Player2ID != nil && *m.Player2ID == participantID {
		return SlotPlayer2
	}
	return 0
}

// Opponent returns the participant in the other slot.
func (m *TournamentMatch) Opponent(participantID int) *int {
	switch m.SlotOf(participantID) {
	case SlotPlayer1:
		return m.Player2ID
	case SlotPlayer2:
		return m.Player1ID
	}
	return nil
}

// SlotsFilled returns how many of the two slots hold a participant.
func (m *TournamentMatch) SlotsFilled() int {
	n := 0
	if m.Player1ID != nil {
		n++
	}
	if m.Player2ID != nil {
		n++
	}
	return n
}

// Slot returns the participant in slot 1 or 2.
func (m *TournamentMatch) Slot(slot int) *int {
	if slot == SlotPlayer1 {
		return m.Player1ID
	}
	return m.Player2ID
}

// SetSlot places participantID into slot 1 or 2.
func (m *TournamentMatch) SetSlot(slot int, participantID *int) {
	if slot == SlotPlayer1 {
		m.Player1ID = participantID
		return
	}
	m.Player2ID = participantID
}

// LoserID returns the non-winning participant of a completed match. Byes
// have no loser.
func (m *TournamentMatch) LoserID() *int {
	if m.WinnerID == nil {
		return nil
	}
	return m.Opponent(*m.WinnerID)
}

// Clone returns a copy that shares no pointers with m.
func (m *TournamentMatch) Clone() *TournamentMatch {
	c := *m
	c.Player1ID = cloneInt(m.Player1ID)
	c.Player2ID = cloneInt(m.Player2ID)
	c.ReportedWinnerID = cloneInt(m.ReportedWinnerID)
	c.ReportedBy = cloneInt(m.ReportedBy)
	c.ConfirmedBy = cloneInt(m.ConfirmedBy)
	c.WinnerID = cloneInt(m.WinnerID)
	c.NextMatchID = cloneInt(m.NextMatchID)
	c.WinnerToSlot = cloneInt(m.WinnerToSlot)
	c.ByeSlot = cloneInt(m.ByeSlot)
	c.ReportEvidence = cloneString(m.ReportEvidence)
	c.ReportNotes = cloneString(m.ReportNotes)
	c.ReportedAt = cloneTime(m.ReportedAt)
	c.ConfirmedAt = cloneTime(m.ConfirmedAt)
	return &c
}

// MatchFinalized is published inside the transaction that moves a match to
// completed with a winner. LoserID is nil for byes.
type MatchFinalized struct {
	TournamentID int
	MatchID      int
	WinnerID     int
	LoserID      *int
	Bye          bool
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
