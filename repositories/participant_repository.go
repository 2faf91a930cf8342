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
	ErrParticipantNotFound          = errors.New("participant not found")
	ErrParticipantConflict          = errors.New("user is already registered for this tournament")
	ErrParticipantUserInvalid       = errors.New("participant user reference is invalid")
	ErrParticipantTournamentInvalid = errors.New("participant tournament reference is invalid")
)

type ParticipantRepository interface {
	Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error
	FindByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error)
	FindByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.Participant, error)
	// ListByTournament returns participants in registration order.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, checkedInOnly bool) ([]*models.Participant, error)
	SetCheckedIn(ctx context.Context, exec SQLExecutor, id int, at time.Time) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, exec SQLExecutor, p *models.Participant) error {
	query := `
		INSERT INTO participants (tournament_id, user_id)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query, p.TournamentID, p.UserID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		constraint, code := pqConstraint(err)
		switch code {
		case pqUniqueViolation:
			if constraint == "participants_user_id_tournament_id_key" {
				return ErrParticipantConflict
			}
		case pqForeignKeyViolation:
			switch constraint {
			case "participants_user_id_fkey":
				return ErrParticipantUserInvalid
			case "participants_tournament_id_fkey":
				return ErrParticipantTournamentInvalid
			}
		}
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (r *postgresParticipantRepository) scanParticipant(rowScanner interface {
	Scan(dest ...interface{}) error
}) (*models.Participant, error) {
	p := &models.Participant{}
	err := rowScanner.Scan(&p.ID, &p.TournamentID, &p.UserID, &p.CheckedIn, &p.CheckedInAt, &p.CreatedAt)
	return p, err
}

func (r *postgresParticipantRepository) findOne(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.Participant, error) {
	p, err := r.scanParticipant(r.getExecutor(exec).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to scan participant: %w", err)
	}
	return p, nil
}

const participantColumns = `id, tournament_id, user_id, checked_in, checked_in_at, created_at`

func (r *postgresParticipantRepository) FindByID(ctx context.Context, exec SQLExecutor, id int) (*models.Participant, error) {
	return r.findOne(ctx, exec, `SELECT `+participantColumns+` FROM participants WHERE id = $1`, id)
}

func (r *postgresParticipantRepository) FindByUserAndTournament(ctx context.Context, exec SQLExecutor, userID, tournamentID int) (*models.Participant, error) {
	return r.findOne(ctx, exec,
		`SELECT `+participantColumns+` FROM participants WHERE user_id = $1 AND tournament_id = $2`,
		userID, tournamentID)
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int, checkedInOnly bool) ([]*models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE tournament_id = $1`
	if checkedInOnly {
		query += ` AND checked_in`
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p, scanErr := r.scanParticipant(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", scanErr)
		}
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during participant rows iteration: %w", err)
	}
	return participants, nil
}

func (r *postgresParticipantRepository) SetCheckedIn(ctx context.Context, exec SQLExecutor, id int, at time.Time) error {
	query := `UPDATE participants SET checked_in = TRUE, checked_in_at = $1 WHERE id = $2`
	result, err := r.getExecutor(exec).ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to check in participant %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}
