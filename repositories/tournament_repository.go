package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/ranked-portal/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this organizer")
	ErrTournamentInvalidOrg   = errors.New("invalid organizer reference")
)

type TournamentRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	// GetForUpdate locks the tournament row; used when changing status.
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	SetRoundCount(ctx context.Context, exec SQLExecutor, id int, rounds int) error
	Complete(ctx context.Context, exec SQLExecutor, id int, championParticipantID int, completedAt time.Time) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresTournamentRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, description, organizer_id, status, is_ranked, allow_byes, max_participants, start_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		t.Name, t.Description, t.OrganizerID, t.Status, t.IsRanked, t.AllowByes, t.MaxParticipants, t.StartDate,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

const tournamentColumns = `
	id, name, description, organizer_id, status, round_count, is_ranked, allow_byes,
	max_participants, champion_participant_id, start_date, completed_at, created_at`

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getOne(ctx, exec, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
}

func (r *postgresTournamentRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	return r.getOne(ctx, exec, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresTournamentRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := r.getExecutor(exec).QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.OrganizerID,
		&t.Status,
		&t.RoundCount,
		&t.IsRanked,
		&t.AllowByes,
		&t.MaxParticipants,
		&t.ChampionParticipantID,
		&t.StartDate,
		&t.CompletedAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to scan tournament by id %d: %w", id, err)
	}
	return t, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetRoundCount(ctx context.Context, exec SQLExecutor, id int, rounds int) error {
	query := `UPDATE tournaments SET round_count = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, rounds, id)
	if err != nil {
		return fmt.Errorf("failed to set round count for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) Complete(ctx context.Context, exec SQLExecutor, id int, championParticipantID int, completedAt time.Time) error {
	query := `
		UPDATE tournaments
		SET status = $1, champion_participant_id = $2, completed_at = $3
		WHERE id = $4`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, models.StatusCompleted, championParticipantID, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to complete tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	constraint, code := pqConstraint(err)
	switch code {
	case pqUniqueViolation:
		if constraint == "tournaments_organizer_id_name_key" {
			return ErrTournamentNameConflict
		}
	case pqForeignKeyViolation:
		if constraint == "tournaments_organizer_id_fkey" {
			return ErrTournamentInvalidOrg
		}
	}
	return err
}
