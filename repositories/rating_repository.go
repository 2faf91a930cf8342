package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/ranked-portal/models"
)

var (
	ErrRatingUserInvalid   = errors.New("rating user reference is invalid")
	ErrRankingChangeExists = errors.New("ranking change already recorded for this user and source")
)

type RatingRepository interface {
	// GetForUpdate returns the user's rating row, creating an unranked one
	// if missing, and locks it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, exec SQLExecutor, userID int) (*models.PlayerRating, error)
	Update(ctx context.Context, exec SQLExecutor, rating *models.PlayerRating) error
	AppendChange(ctx context.Context, exec SQLExecutor, change *models.RankingChange) error
	// ListChanges returns the user's history oldest first.
	ListChanges(ctx context.Context, exec SQLExecutor, userID int) ([]*models.RankingChange, error)
	Leaderboard(ctx context.Context, exec SQLExecutor, limit, offset int) ([]*models.PlayerRating, error)
}

type postgresRatingRepository struct {
	db *sql.DB
}

func NewPostgresRatingRepository(db *sql.DB) RatingRepository {
	return &postgresRatingRepository{db: db}
}

func (r *postgresRatingRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const ratingColumns = `user_id, points, rank, wins, losses, win_streak, best_streak, ranked_matches, updated_at`

func scanRating(row interface {
	Scan(dest ...interface{}) error
}) (*models.PlayerRating, error) {
	pr := &models.PlayerRating{}
	err := row.Scan(&pr.UserID, &pr.Points, &pr.Rank, &pr.Wins, &pr.Losses,
		&pr.WinStreak, &pr.BestStreak, &pr.RankedMatches, &pr.UpdatedAt)
	return pr, err
}

func (r *postgresRatingRepository) GetForUpdate(ctx context.Context, exec SQLExecutor, userID int) (*models.PlayerRating, error) {
	executor := r.getExecutor(exec)

	_, err := executor.ExecContext(ctx,
		`INSERT INTO player_ratings (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		if constraint, _ := pqConstraint(err); constraint == "player_ratings_user_id_fkey" {
			return nil, ErrRatingUserInvalid
		}
		return nil, fmt.Errorf("failed to ensure rating row for user %d: %w", userID, err)
	}

	pr, err := scanRating(executor.QueryRowContext(ctx,
		`SELECT `+ratingColumns+` FROM player_ratings WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock rating row for user %d: %w", userID, err)
	}
	return pr, nil
}

func (r *postgresRatingRepository) Update(ctx context.Context, exec SQLExecutor, pr *models.PlayerRating) error {
	query := `
		UPDATE player_ratings
		SET points = $1, rank = $2, wins = $3, losses = $4, win_streak = $5,
		    best_streak = $6, ranked_matches = $7, updated_at = NOW()
		WHERE user_id = $8
		RETURNING updated_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		pr.Points, pr.Rank, pr.Wins, pr.Losses, pr.WinStreak, pr.BestStreak, pr.RankedMatches, pr.UserID,
	).Scan(&pr.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRatingUserInvalid
		}
		if _, code := pqConstraint(err); code == pqCheckViolation {
			return fmt.Errorf("rating points for user %d would go negative: %w", pr.UserID, err)
		}
		return fmt.Errorf("failed to update rating for user %d: %w", pr.UserID, err)
	}
	return nil
}

func (r *postgresRatingRepository) AppendChange(ctx context.Context, exec SQLExecutor, c *models.RankingChange) error {
	query := `
		INSERT INTO ranking_changes (user_id, old_points, new_points, match_id, challenge_id, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.getExecutor(exec).QueryRowContext(ctx, query,
		c.UserID, c.OldPoints, c.NewPoints, c.MatchID, c.ChallengeID, c.Reason,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		constraint, code := pqConstraint(err)
		switch {
		case code == pqUniqueViolation:
			return ErrRankingChangeExists
		case constraint == "ranking_changes_user_id_fkey":
			return ErrRatingUserInvalid
		}
		return fmt.Errorf("failed to append ranking change for user %d: %w", c.UserID, err)
	}
	return nil
}

func (r *postgresRatingRepository) ListChanges(ctx context.Context, exec SQLExecutor, userID int) ([]*models.RankingChange, error) {
	query := `
		SELECT id, user_id, old_points, new_points, match_id, challenge_id, reason, created_at
		FROM ranking_changes
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ranking changes for user %d: %w", userID, err)
	}
	defer rows.Close()

	changes := make([]*models.RankingChange, 0)
	for rows.Next() {
		c := &models.RankingChange{}
		if scanErr := rows.Scan(&c.ID, &c.UserID, &c.OldPoints, &c.NewPoints,
			&c.MatchID, &c.ChallengeID, &c.Reason, &c.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan ranking change row: %w", scanErr)
		}
		changes = append(changes, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during ranking change rows iteration: %w", err)
	}
	return changes, nil
}

func (r *postgresRatingRepository) Leaderboard(ctx context.Context, exec SQLExecutor, limit, offset int) ([]*models.PlayerRating, error) {
	query := `SELECT ` + ratingColumns + `
		FROM player_ratings
		WHERE ranked_matches > 0
		ORDER BY points DESC, user_id ASC
		LIMIT $1 OFFSET $2`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	ratings := make([]*models.PlayerRating, 0, limit)
	for rows.Next() {
		pr, scanErr := scanRating(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", scanErr)
		}
		ratings = append(ratings, pr)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during leaderboard rows iteration: %w", err)
	}
	return ratings, nil
}
