package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/ranked-portal/models"
)

var (
	ErrDisputeNotFound     = errors.New("dispute not found")
	ErrDisputeOpenConflict = errors.New("an open dispute already exists for this match")
	ErrDisputeMatchInvalid = errors.New("dispute match reference is invalid")
)

type ListDisputesFilter struct {
	Status       *models.DisputeStatus
	TournamentID *int
	Limit        int
	Offset       int
}

type DisputeRepository interface {
	Create(ctx context.Context, exec SQLExecutor, d *models.Dispute) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error)
	GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error)
	// GetOpenByMatch returns ErrDisputeNotFound when the match has no pending dispute.
	GetOpenByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.Dispute, error)
	Resolve(ctx context.Context, exec SQLExecutor, d *models.Dispute) error
	List(ctx context.Context, exec SQLExecutor, filter ListDisputesFilter) ([]*models.Dispute, error)
}

type postgresDisputeRepository struct {
	db *sql.DB
}

func NewPostgresDisputeRepository(db *sql.DB) DisputeRepository {
	return &postgresDisputeRepository{db: db}
}

func (r *postgresDisputeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const disputeColumns = `
	id, match_id, tournament_id, reporter_id, reason, evidence_ref, status,
	resolution, resolution_notes, resolved_by, resolved_at, created_at`

func scanDispute(row interface {
	Scan(dest ...interface{}) error
}) (*models.Dispute, error) {
	d := &models.Dispute{}
	err := row.Scan(
		&d.ID, &d.MatchID, &d.TournamentID, &d.ReporterID, &d.Reason, &d.EvidenceRef, &d.Status,
		&d.Resolution, &d.ResolutionNotes, &d.ResolvedBy, &d.ResolvedAt, &d.CreatedAt,
	)
	return d, err
}

func (r *postgresDisputeRepository) Create(ctx context.Context, exec SQLExecutor, d *models.Dispute) error {
	query := `
		INSERT INTO disputes (match_id, tournament_id, reporter_id, reason, evidence_ref, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		d.MatchID, d.TournamentID, d.ReporterID, d.Reason, d.EvidenceRef, d.Status,
	).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		constraint, _ := pqConstraint(err)
		switch constraint {
		case "disputes_one_open_per_match":
			return ErrDisputeOpenConflict
		case "disputes_match_id_fkey", "disputes_reporter_id_fkey":
			return ErrDisputeMatchInvalid
		}
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

func (r *postgresDisputeRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error) {
	return r.getOne(ctx, exec, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1`, id)
}

func (r *postgresDisputeRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, id int) (*models.Dispute, error) {
	return r.getOne(ctx, exec, `SELECT `+disputeColumns+` FROM disputes WHERE id = $1 FOR UPDATE`, id)
}

func (r *postgresDisputeRepository) GetOpenByMatch(ctx context.Context, exec SQLExecutor, matchID int) (*models.Dispute, error) {
	return r.getOne(ctx, exec,
		`SELECT `+disputeColumns+` FROM disputes WHERE match_id = $1 AND status = 'pending'`, matchID)
}

func (r *postgresDisputeRepository) getOne(ctx context.Context, exec SQLExecutor, query string, arg int) (*models.Dispute, error) {
	d, err := scanDispute(r.getExecutor(exec).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDisputeNotFound
		}
		return nil, fmt.Errorf("failed to scan dispute: %w", err)
	}
	return d, nil
}

// Resolve only touches pending rows, so resolved history stays immutable.
func (r *postgresDisputeRepository) Resolve(ctx context.Context, exec SQLExecutor, d *models.Dispute) error {
	query := `
		UPDATE disputes
		SET status = $1, resolution = $2, resolution_notes = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $6 AND status = 'pending'`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		d.Status, d.Resolution, d.ResolutionNotes, d.ResolvedBy, d.ResolvedAt, d.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve dispute %d: %w", d.ID, err)
	}
	return checkAffectedRows(result, ErrDisputeNotFound)
}

func (r *postgresDisputeRepository) List(ctx context.Context, exec SQLExecutor, filter ListDisputesFilter) ([]*models.Dispute, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + disputeColumns + ` FROM disputes WHERE 1=1`)

	args := []interface{}{}
	placeholderIndex := 1

	if filter.Status != nil {
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.Status)
		placeholderIndex++
	}
	if filter.TournamentID != nil {
		queryBuilder.WriteString(" AND tournament_id = $" + strconv.Itoa(placeholderIndex))
		args = append(args, *filter.TournamentID)
		placeholderIndex++
	}
	queryBuilder.WriteString(" ORDER BY created_at ASC, id ASC")
	if filter.Limit > 0 {
		queryBuilder.WriteString(" LIMIT $" + strconv.Itoa(placeholderIndex))
		args = append(args, filter.Limit)
		placeholderIndex++
	}
	if filter.Offset > 0 {
		queryBuilder.WriteString(" OFFSET $" + strconv.Itoa(placeholderIndex))
		args = append(args, filter.Offset)
	}

	rows, err := r.getExecutor(exec).QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list disputes: %w", err)
	}
	defer rows.Close()

	disputes := make([]*models.Dispute, 0)
	for rows.Next() {
		d, scanErr := scanDispute(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan dispute row: %w", scanErr)
		}
		disputes = append(disputes, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during dispute rows iteration: %w", err)
	}
	return disputes, nil
}
