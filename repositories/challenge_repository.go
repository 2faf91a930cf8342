package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/ranked-portal/models"
)

var (
	ErrChallengeNotFound        = errors.New("challenge not found")
	ErrChallengeVersionConflict = errors.New("challenge was modified concurrently")
	ErrChallengeUserInvalid     = errors.New("challenge user reference is invalid")
)

type ChallengeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, c *models.Challenge) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Challenge, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Challenge, error)
	// Update writes status and result columns guarded by c.Version.
	Update(ctx context.Context, exec SQLExecutor, c *models.Challenge) error
	ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.Challenge, error)
}

type postgresChallengeRepository struct {
	db *sql.DB
}

func NewPostgresChallengeRepository(db *sql.DB) ChallengeRepository {
	return &postgresChallengeRepository{db: db}
}

func (r *postgresChallengeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const challengeColumns = `
	id, challenger_id, opponent_id, status, message, reported_winner_id, reported_by,
	confirmed_by, winner_id, version, created_at, completed_at`

func scanChallenge(row interface {
	Scan(dest ...interface{}) error
}) (*models.Challenge, error) {
	c := &models.Challenge{}
	err := row.Scan(&c.ID, &c.ChallengerID, &c.OpponentID, &c.Status, &c.Message,
		&c.ReportedWinnerID, &c.ReportedBy, &c.ConfirmedBy, &c.WinnerID,
		&c.Version, &c.CreatedAt, &c.CompletedAt)
	return c, err
}

func (r *postgresChallengeRepository) Create(ctx context.Context, exec SQLExecutor, c *models.Challenge) error {
	query := `
		INSERT INTO challenges (challenger_id, opponent_id, status, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, version, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query, c.ChallengerID, c.OpponentID, c.Status, c.Message).
		Scan(&c.ID, &c.Version, &c.CreatedAt)
	if err != nil {
		if _, code := pqConstraint(err); code == pqForeignKeyViolation {
			return ErrChallengeUserInvalid
		}
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

func (r *postgresChallengeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Challenge, error) {
	return r.getOne(ctx, exec, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1`, id)
}

func (r *postgresChallengeRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Challenge, error) {
	return r.getOne(ctx, exec, `SELECT `+challengeColumns+` FROM challenges WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresChallengeRepository) getOne(ctx context.Context, exec SQLExecutor, query string, id int) (*models.Challenge, error) {
	c, err := scanChallenge(r.getExecutor(exec).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("failed to scan challenge by id %d: %w", id, err)
	}
	return c, nil
}

func (r *postgresChallengeRepository) Update(ctx context.Context, exec SQLExecutor, c *models.Challenge) error {
	query := `
		UPDATE challenges
		SET status = $1, reported_winner_id = $2, reported_by = $3, confirmed_by = $4,
		    winner_id = $5, completed_at = $6, version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING version`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		c.Status, c.ReportedWinnerID, c.ReportedBy, c.ConfirmedBy, c.WinnerID, c.CompletedAt,
		c.ID, c.Version,
	).Scan(&c.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrChallengeVersionConflict
		}
		return fmt.Errorf("failed to update challenge %d: %w", c.ID, err)
	}
	return nil
}

func (r *postgresChallengeRepository) ListByUser(ctx context.Context, exec SQLExecutor, userID int) ([]*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + `
		FROM challenges
		WHERE challenger_id = $1 OR opponent_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges for user %d: %w", userID, err)
	}
	defer rows.Close()

	challenges := make([]*models.Challenge, 0)
	for rows.Next() {
		c, scanErr := scanChallenge(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan challenge row: %w", scanErr)
		}
		challenges = append(challenges, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during challenge rows iteration: %w", err)
	}
	return challenges, nil
}
