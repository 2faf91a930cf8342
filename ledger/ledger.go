// Package ledger holds the match result state machine. It is pure: Apply
// never touches storage, it returns the next version of the match and the
// finalization event (if any) for the caller to persist atomically.
package ledger

import (
	"fmt"
	"time"

	"github.com/Dosada05/ranked-portal/models"
)

// Event is one input to the state machine.
type Event interface {
	eventName() string
}

// Report is a one-sided claim of the outcome by a participant.
type Report struct {
	Reporter int
	Winner   int
	Score1   int
	Score2   int
	Evidence *string
	Notes    *string
	At       time.Time
}

// Confirm is the opposing participant accepting the report.
type Confirm struct {
	Confirmer int
	At        time.Time
}

// Contest is the opposing participant rejecting the report.
type Contest struct {
	Disputer int
}

// Arbitrate is a moderator ruling on a disputed match. Score1/Score2 are
// optional corrected scores.
type Arbitrate struct {
	Resolution models.DisputeResolution
	Score1     *int
	Score2     *int
	At         time.Time
}

// Bye completes a match that has exactly one participant.
type Bye struct {
	AllowByes bool
	At        time.Time
}

func (Report) eventName() string    { return "report" }
func (Confirm) eventName() string   { return "confirm" }
func (Contest) eventName() string   { return "dispute" }
func (Arbitrate) eventName() string { return "arbitrate" }
func (Bye) eventName() string       { return "bye" }

// Name returns the metric/log label of an event.
func Name(ev Event) string {
	return ev.eventName()
}

// Outcome describes what Apply did besides returning the next state.
type Outcome struct {
	// Noop is set when the event repeated an already applied report.
	Noop bool
	// Finalized is non-nil when the match moved to completed with a winner.
	Finalized *models.MatchFinalized
}

// Apply validates ev against the current state of m and returns the next
// state. m itself is never modified.
func Apply(m *models.TournamentMatch, ev Event) (*models.TournamentMatch, Outcome, error) {
	if m == nil {
		return nil, Outcome{}, fmt.Errorf("%w: nil match", ErrInvalidTransition)
	}
	next := m.Clone()

	var (
		out Outcome
		err error
	)
	switch e := ev.(type) {
	case Report:
		out, err = applyReport(next, e)
	case Confirm:
		out, err = applyConfirm(next, e)
	case Contest:
		out, err = applyContest(next, e)
	case Arbitrate:
		out, err = applyArbitrate(next, e)
	case Bye:
		out, err = applyBye(next, e)
	default:
		err = fmt.Errorf("%w: unsupported event %T", ErrInvalidTransition, ev)
	}
	if err != nil {
		return nil, Outcome{}, err
	}
	if out.Noop {
		return m.Clone(), out, nil
	}
	return next, out, nil
}

func applyReport(m *models.TournamentMatch, e Report) (Outcome, error) {
	switch m.Status {
	case models.MatchStatusPending:
		// handled below
	case models.MatchStatusReported:
		if m.ReportedBy != nil && *m.ReportedBy == e.Reporter && sameReport(m, e) {
			return Outcome{Noop: true}, nil
		}
		return Outcome{}, ErrAlreadyReported
	case models.MatchStatusCompleted:
		return Outcome{}, ErrAlreadyFinalized
	case models.MatchStatusDisputed, models.MatchStatusBye:
		return Outcome{}, invalid(m.Status, "report")
	default:
		return Outcome{}, unknown(m.Status)
	}

	if m.SlotsFilled() != 2 {
		return Outcome{}, fmt.Errorf("%w: both participant slots must be populated before reporting", ErrInvalidTransition)
	}
	if !m.HasParticipant(e.Reporter) {
		return Outcome{}, ErrNotAParticipant
	}
	if err := validateScore(m, e.Winner, e.Score1, e.Score2); err != nil {
		return Outcome{}, err
	}

	winner, reporter := e.Winner, e.Reporter
	at := e.At
	m.Player1Score = e.Score1
	m.Player2Score = e.Score2
	m.ReportedWinnerID = &winner
	m.ReportedBy = &reporter
	m.ReportEvidence = e.Evidence
	m.ReportNotes = e.Notes
	m.ReportedAt = &at
	m.Status = models.MatchStatusReported
	return Outcome{}, nil
}

func applyConfirm(m *models.TournamentMatch, e Confirm) (Outcome, error) {
	switch m.Status {
	case models.MatchStatusReported:
	case models.MatchStatusCompleted, models.MatchStatusDisputed:
		return Outcome{}, ErrAlreadyFinalized
	case models.MatchStatusPending, models.MatchStatusBye:
		return Outcome{}, invalid(m.Status, "confirm")
	default:
		return Outcome{}, unknown(m.Status)
	}

	if err := checkOpposingActor(m, e.Confirmer); err != nil {
		return Outcome{}, err
	}

	confirmer := e.Confirmer
	at := e.At
	winner := *m.ReportedWinnerID
	m.WinnerID = &winner
	m.ConfirmedBy = &confirmer
	m.ConfirmedAt = &at
	m.Status = models.MatchStatusCompleted
	return Outcome{Finalized: finalized(m, false)}, nil
}

func applyContest(m *models.TournamentMatch, e Contest) (Outcome, error) {
	switch m.Status {
	case models.MatchStatusReported:
	case models.MatchStatusDisputed:
		return Outcome{}, ErrDisputeAlreadyOpen
	case models.MatchStatusCompleted:
		return Outcome{}, ErrAlreadyFinalized
	case models.MatchStatusPending, models.MatchStatusBye:
		return Outcome{}, invalid(m.Status, "dispute")
	default:
		return Outcome{}, unknown(m.Status)
	}

	if err := checkOpposingActor(m, e.Disputer); err != nil {
		return Outcome{}, err
	}
	if m.IsDisputed {
		return Outcome{}, ErrDisputeAlreadyOpen
	}

	m.Status = models.MatchStatusDisputed
	m.IsDisputed = true
	return Outcome{}, nil
}

func applyArbitrate(m *models.TournamentMatch, e Arbitrate) (Outcome, error) {
	switch m.Status {
	case models.MatchStatusDisputed:
	case models.MatchStatusCompleted:
		return Outcome{}, ErrAlreadyFinalized
	case models.MatchStatusPending, models.MatchStatusReported, models.MatchStatusBye:
		return Outcome{}, invalid(m.Status, "arbitrate")
	default:
		return Outcome{}, unknown(m.Status)
	}

	var winner *int
	switch e.Resolution {
	case models.ResolutionAnnul:
		m.Status = models.MatchStatusPending
		m.Player1Score, m.Player2Score = 0, 0
		m.ReportedWinnerID = nil
		m.ReportedBy = nil
		m.ReportEvidence = nil
		m.ReportNotes = nil
		m.ReportedAt = nil
		m.IsDisputed = false
		return Outcome{}, nil
	case models.ResolutionPlayer1Wins:
		winner = m.Player1ID
	case models.ResolutionPlayer2Wins:
		winner = m.Player2ID
	default:
		return Outcome{}, fmt.Errorf("%w: unknown resolution %q", ErrInvalidTransition, e.Resolution)
	}
	if winner == nil {
		return Outcome{}, fmt.Errorf("%w: ruled winner slot is empty", ErrInvalidTransition)
	}

	switch {
	case e.Score1 != nil && e.Score2 != nil:
		if err := validateScore(m, *winner, *e.Score1, *e.Score2); err != nil {
			return Outcome{}, err
		}
		m.Player1Score, m.Player2Score = *e.Score1, *e.Score2
	case e.Score1 != nil || e.Score2 != nil:
		return Outcome{}, fmt.Errorf("%w: both corrected scores must be given", ErrInvalidScore)
	case m.ReportedWinnerID != nil && *m.ReportedWinnerID != *winner:
		// The ruling overturns the report; the reported scores belong to the
		// other side.
		m.Player1Score, m.Player2Score = m.Player2Score, m.Player1Score
	}

	w := *winner
	at := e.At
	m.WinnerID = &w
	m.ConfirmedBy = nil
	m.ConfirmedAt = &at
	m.IsDisputed = false
	m.Status = models.MatchStatusCompleted
	return Outcome{Finalized: finalized(m, false)}, nil
}

func applyBye(m *models.TournamentMatch, e Bye) (Outcome, error) {
	switch m.Status {
	case models.MatchStatusPending, models.MatchStatusBye:
	case models.MatchStatusCompleted:
		return Outcome{}, ErrAlreadyFinalized
	case models.MatchStatusReported, models.MatchStatusDisputed:
		return Outcome{}, invalid(m.Status, "bye")
	default:
		return Outcome{}, unknown(m.Status)
	}

	if !e.AllowByes {
		return Outcome{}, fmt.Errorf("%w: tournament does not allow byes", ErrInvalidTransition)
	}
	if m.SlotsFilled() != 1 {
		return Outcome{}, fmt.Errorf("%w: a bye needs exactly one populated slot", ErrInvalidTransition)
	}

	winner := m.Player1ID
	if winner == nil {
		winner = m.Player2ID
	}
	w := *winner
	at := e.At
	m.WinnerID = &w
	m.ConfirmedAt = &at
	m.Status = models.MatchStatusCompleted
	return Outcome{Finalized: finalized(m, true)}, nil
}

// validateScore checks scores are non-negative and the declared winner
// strictly outscored the opponent.
func validateScore(m *models.TournamentMatch, winner, score1, score2 int) error {
	if score1 < 0 || score2 < 0 {
		return fmt.Errorf("%w: scores must be non-negative", ErrInvalidScore)
	}
	switch m.SlotOf(winner) {
	case models.SlotPlayer1:
		if score1 <= score2 {
			return fmt.Errorf("%w: winner must have the higher score (%d-%d)", ErrInvalidScore, score1, score2)
		}
	case models.SlotPlayer2:
		if score2 <= score1 {
			return fmt.Errorf("%w: winner must have the higher score (%d-%d)", ErrInvalidScore, score1, score2)
		}
	default:
		return fmt.Errorf("%w: declared winner %d is not in this match", ErrInvalidScore, winner)
	}
	return nil
}

func checkOpposingActor(m *models.TournamentMatch, actor int) error {
	if !m.HasParticipant(actor) {
		return ErrNotAParticipant
	}
	if m.ReportedBy != nil && *m.ReportedBy == actor {
		return ErrSelfConfirmation
	}
	return nil
}

func sameReport(m *models.TournamentMatch, e Report) bool {
	return m.ReportedWinnerID != nil && *m.ReportedWinnerID == e.Winner &&
		m.Player1Score == e.Score1 && m.Player2Score == e.Score2
}

func finalized(m *models.TournamentMatch, bye bool) *models.MatchFinalized {
	ev := &models.MatchFinalized{
		TournamentID: m.TournamentID,
		MatchID:      m.ID,
		WinnerID:     *m.WinnerID,
		Bye:          bye,
	}
	if !bye {
		ev.LoserID = m.LoserID()
	}
	return ev
}

func invalid(status models.MatchStatus, event string) error {
	return fmt.Errorf("%w: cannot %s a match in status %q", ErrInvalidTransition, event, status)
}

func unknown(status models.MatchStatus) error {
	return fmt.Errorf("%w: %q", ErrUnknownStatus, status)
}
