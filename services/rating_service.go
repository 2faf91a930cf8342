package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/ranked-portal/metrics"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/rating"
	"github.com/Dosada05/ranked-portal/repositories"
)

// RatingSource identifies what produced a rating change. Exactly one of
// MatchID and ChallengeID is set.
type RatingSource struct {
	MatchID     *int
	ChallengeID *int
	Reason      models.RankingReason
	// CountResult updates wins, losses and streaks. Only tournament
	// matches do.
	CountResult bool
}

// RatingOutcome is the applied adjustment.
type RatingOutcome struct {
	rating.Result
	Winner *models.PlayerRating
	Loser  *models.PlayerRating
}

type RatingHistory struct {
	UserID int `json:"user_id"`
	// Points is the total after the latest change.
	Points  int                     `json:"points"`
	Changes []*models.RankingChange `json:"changes"`
}

type RatingService interface {
	FinalizationListener
	// ApplyResult must run inside the caller's transaction.
	ApplyResult(ctx context.Context, exec repositories.SQLExecutor, winnerUserID, loserUserID int, src RatingSource) (*RatingOutcome, error)
	GetRatingHistory(ctx context.Context, viewerID int, userID int) (*RatingHistory, error)
	Leaderboard(ctx context.Context, limit, offset int) ([]*models.PlayerRating, error)
}

type ratingService struct {
	ratingRepo      repositories.RatingRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	userRepo        repositories.UserRepository
	authorizer      Authorizer
	metrics         metrics.Recorder
	logger          *slog.Logger
}

func NewRatingService(
	ratingRepo repositories.RatingRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	userRepo repositories.UserRepository,
	authorizer Authorizer,
	recorder metrics.Recorder,
	logger *slog.Logger,
) RatingService {
	return &ratingService{
		ratingRepo:      ratingRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		userRepo:        userRepo,
		authorizer:      authorizer,
		metrics:         recorder,
		logger:          logger,
	}
}

func (s *ratingService) Name() string { return "rating" }

// OnMatchFinalized adjusts ratings for completed matches of ranked
// tournaments. Byes carry no result.
func (s *ratingService) OnMatchFinalized(ctx context.Context, uow *UnitOfWork, ev models.MatchFinalized) error {
	if ev.Bye || ev.LoserID == nil {
		return nil
	}

	t, err := s.tournamentRepo.GetByID(ctx, uow.Exec, ev.TournamentID)
	if err != nil {
		return fmt.Errorf("failed to load tournament %d for rating: %w", ev.TournamentID, err)
	}
	if !t.IsRanked {
		return nil
	}

	winner, err := s.participantRepo.FindByID(ctx, uow.Exec, ev.WinnerID)
	if err != nil {
		return fmt.Errorf("failed to load winning participant %d: %w", ev.WinnerID, err)
	}
	loser, err := s.participantRepo.FindByID(ctx, uow.Exec, *ev.LoserID)
	if err != nil {
		return fmt.Errorf("failed to load losing participant %d: %w", *ev.LoserID, err)
	}

	matchID := ev.MatchID
	_, err = s.ApplyResult(ctx, uow.Exec, winner.UserID, loser.UserID, RatingSource{
		MatchID:     &matchID,
		Reason:      models.ReasonTournamentMatch,
		CountResult: true,
	})
	return err
}

func (s *ratingService) ApplyResult(ctx context.Context, exec repositories.SQLExecutor, winnerUserID, loserUserID int, src RatingSource) (*RatingOutcome, error) {
	if winnerUserID == loserUserID {
		return nil, fmt.Errorf("%w: winner and loser are the same user %d", ErrValidationFailed, winnerUserID)
	}

	// Rows are always locked in ascending user order.
	first, second := winnerUserID, loserUserID
	if second < first {
		first, second = second, first
	}
	locked := make(map[int]*models.PlayerRating, 2)
	for _, id := range []int{first, second} {
		pr, err := s.ratingRepo.GetForUpdate(ctx, exec, id)
		if err != nil {
			if errors.Is(err, repositories.ErrRatingUserInvalid) {
				return nil, fmt.Errorf("user %d: %w", id, ErrUserNotFound)
			}
			return nil, err
		}
		locked[id] = pr
	}
	w, l := locked[winnerUserID], locked[loserUserID]

	res := rating.Compute(w.Rank, l.Rank, l.Points)
	oldW, oldL := w.Points, l.Points

	w.Points += res.WinnerDelta
	l.Points += res.LoserDelta
	w.RankedMatches++
	l.RankedMatches++
	if src.CountResult {
		w.Wins++
		w.WinStreak++
		if w.WinStreak > w.BestStreak {
			w.BestStreak = w.WinStreak
		}
		l.Losses++
		l.WinStreak = 0
	}
	w.Rank = rating.RankFor(w.Points, w.RankedMatches)
	l.Rank = rating.RankFor(l.Points, l.RankedMatches)

	for _, pr := range []*models.PlayerRating{w, l} {
		if err := s.ratingRepo.Update(ctx, exec, pr); err != nil {
			return nil, err
		}
	}

	for _, c := range []*models.RankingChange{
		{UserID: w.UserID, OldPoints: oldW, NewPoints: w.Points, MatchID: src.MatchID, ChallengeID: src.ChallengeID, Reason: src.Reason},
		{UserID: l.UserID, OldPoints: oldL, NewPoints: l.Points, MatchID: src.MatchID, ChallengeID: src.ChallengeID, Reason: src.Reason},
	} {
		if err := s.ratingRepo.AppendChange(ctx, exec, c); err != nil {
			if errors.Is(err, repositories.ErrRankingChangeExists) {
				return nil, fmt.Errorf("rating for user %d: %w", c.UserID, ErrAlreadyFinalized)
			}
			return nil, err
		}
	}

	s.metrics.RecordRatingAdjustment(string(src.Reason), res.WinnerDelta, res.LoserDelta)
	s.logger.InfoContext(ctx, "rating adjusted",
		slog.String("reason", string(src.Reason)),
		slog.Int("winner_user_id", w.UserID),
		slog.Int("winner_delta", res.WinnerDelta),
		slog.Int("loser_user_id", l.UserID),
		slog.Int("loser_delta", res.LoserDelta),
	)
	return &RatingOutcome{Result: res, Winner: w, Loser: l}, nil
}

func (s *ratingService) GetRatingHistory(ctx context.Context, viewerID int, userID int) (*RatingHistory, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !user.RatingHistoryPublic && viewerID != userID {
		allowed := false
		if viewerID != 0 {
			allowed, err = s.authorizer.CanArbitrate(ctx, viewerID)
			if err != nil {
				return nil, err
			}
		}
		if !allowed {
			return nil, ErrRatingHistoryPrivate
		}
	}

	changes, err := s.ratingRepo.ListChanges(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	history := &RatingHistory{UserID: userID, Changes: changes}
	if len(changes) > 0 {
		history.Points = changes[len(changes)-1].NewPoints
	}
	return history, nil
}

func (s *ratingService) Leaderboard(ctx context.Context, limit, offset int) ([]*models.PlayerRating, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.ratingRepo.Leaderboard(ctx, nil, limit, offset)
}
