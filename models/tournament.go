package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusRegistration TournamentStatus = "registration"
	StatusCheckIn      TournamentStatus = "check_in"
	StatusActive       TournamentStatus = "active"
	StatusCompleted    TournamentStatus = "completed"
	StatusCancelled    TournamentStatus = "cancelled"
)

// IsTerminal reports whether no further status change is possible.
func (s TournamentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Tournament представляет турнир.
type Tournament struct {
	ID                    int              `json:"id" db:"id"`
	Name                  string           `json:"name" db:"name"`
	Description           *string          `json:"description,omitempty" db:"description"`
	OrganizerID           int              `json:"organizer_id" db:"organizer_id"`
	Status                TournamentStatus `json:"status" db:"status"`
	RoundCount            int              `json:"round_count" db:"round_count"`
	IsRanked              bool             `json:"is_ranked" db:"is_ranked"`
	AllowByes             bool             `json:"allow_byes" db:"allow_byes"`
	MaxParticipants       int              `json:"max_participants" db:"max_participants"`
	ChampionParticipantID *int             `json:"champion_participant_id,omitempty" db:"champion_participant_id"`
	StartDate             time.Time        `json:"start_date" db:"start_date"`
	CompletedAt           *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt             time.Time        `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []Participant      `json:"participants,omitempty" db:"-"`
	Matches      []*TournamentMatch `json:"matches,omitempty" db:"-"`
}
