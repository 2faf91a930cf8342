package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/ranked-portal/models"
)

var (
	ErrMatchNotFound           = errors.New("tournament match not found")
	ErrMatchVersionConflict    = errors.New("tournament match was modified concurrently")
	ErrMatchTournamentInvalid  = errors.New("tournament match tournament conflict or invalid")
	ErrMatchParticipantInvalid = errors.New("tournament match participant conflict or invalid")
	ErrMatchNumberConflict     = errors.New("match number already used in this round")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.TournamentMatch) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentMatch, error)
	// GetForUpdate locks the match row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentMatch, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentMatch, error)
	// Update writes every mutable column if match.Version is still current
	// and bumps match.Version on success.
	Update(ctx context.Context, exec SQLExecutor, match *models.TournamentMatch) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const matchColumns = `
	id, tournament_id, round, match_number, player1_id, player2_id, player1_score, player2_score,
	status, reported_winner_id, reported_by, report_evidence, report_notes, reported_at,
	confirmed_by, confirmed_at, winner_id, is_disputed, next_match_id, winner_to_slot, bye_slot,
	version, created_at, updated_at`

func scanMatch(row interface {
	Scan(dest ...interface{}) error
}) (*models.TournamentMatch, error) {
	m := &models.TournamentMatch{}
	err := row.Scan(
		&m.ID, &m.TournamentID, &m.Round, &m.MatchNumber,
		&m.Player1ID, &m.Player2ID, &m.Player1Score, &m.Player2Score,
		&m.Status, &m.ReportedWinnerID, &m.ReportedBy, &m.ReportEvidence, &m.ReportNotes, &m.ReportedAt,
		&m.ConfirmedBy, &m.ConfirmedAt, &m.WinnerID, &m.IsDisputed,
		&m.NextMatchID, &m.WinnerToSlot, &m.ByeSlot,
		&m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.TournamentMatch) error {
	query := `
		INSERT INTO tournament_matches
			(tournament_id, round, match_number, player1_id, player2_id, status, next_match_id, winner_to_slot, bye_slot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, version, created_at, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.TournamentID,
		m.Round,
		m.MatchNumber,
		m.Player1ID,
		m.Player2ID,
		m.Status,
		m.NextMatchID,
		m.WinnerToSlot,
		m.ByeSlot,
	).Scan(&m.ID, &m.Version, &m.CreatedAt, &m.UpdatedAt)

	return r.handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentMatch, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM tournament_matches WHERE id = $1`, id)
}

func (r *postgresMatchRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.TournamentMatch, error) {
	return r.getOne(ctx, exec, `SELECT `+matchColumns+` FROM tournament_matches WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresMatchRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.TournamentMatch, error) {
	m, err := scanMatch(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament match by id %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.TournamentMatch, error) {
	query := `SELECT ` + matchColumns + `
		FROM tournament_matches
		WHERE tournament_id = $1
		ORDER BY round ASC, match_number ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	matches := make([]*models.TournamentMatch, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan tournament match row: %w", scanErr)
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during tournament match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, m *models.TournamentMatch) error {
	query := `
		UPDATE tournament_matches SET
			player1_id = $1, player2_id = $2, player1_score = $3, player2_score = $4,
			status = $5, reported_winner_id = $6, reported_by = $7, report_evidence = $8,
			report_notes = $9, reported_at = $10, confirmed_by = $11, confirmed_at = $12,
			winner_id = $13, is_disputed = $14,
			version = version + 1, updated_at = NOW()
		WHERE id = $15 AND version = $16
		RETURNING version, updated_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		m.Player1ID, m.Player2ID, m.Player1Score, m.Player2Score,
		m.Status, m.ReportedWinnerID, m.ReportedBy, m.ReportEvidence,
		m.ReportNotes, m.ReportedAt, m.ConfirmedBy, m.ConfirmedAt,
		m.WinnerID, m.IsDisputed,
		m.ID, m.Version,
	).Scan(&m.Version, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrMatchVersionConflict
		}
		return r.handleMatchError(err)
	}
	return nil
}

func (r *postgresMatchRepository) handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	constraint, _ := pqConstraint(err)
	switch constraint {
	case "tournament_matches_tournament_id_fkey":
		return ErrMatchTournamentInvalid
	case "tournament_matches_player1_id_fkey", "tournament_matches_player2_id_fkey",
		"tournament_matches_winner_id_fkey", "tournament_matches_reported_winner_id_fkey":
		return ErrMatchParticipantInvalid
	case "tournament_matches_tournament_id_round_match_number_key":
		return ErrMatchNumberConflict
	case "chk_tournament_matches_winner":
		return fmt.Errorf("winner must be set exactly when the match is completed: %w", err)
	}
	return err
}
