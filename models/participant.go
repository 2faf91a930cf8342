package models

import "time"

// Participant is a player's registration within one tournament. Matches
// reference participants, never users directly.
type Participant struct {
	ID           int        `json:"id" db:"id"`
	TournamentID int        `json:"tournament_id" db:"tournament_id"`
	UserID       int        `json:"user_id" db:"user_id"`
	CheckedIn    bool       `json:"checked_in" db:"checked_in"`
	CheckedInAt  *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}
