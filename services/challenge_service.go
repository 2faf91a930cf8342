package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/ranked-portal/metrics"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/notify"
	"github.com/Dosada05/ranked-portal/repositories"
)

type CreateChallengeInput struct {
	OpponentID int     `json:"opponent_id"`
	Message    *string `json:"message,omitempty"`
}

type ReportChallengeInput struct {
	WinnerID int `json:"winner_id"`
}

// ChallengeService runs ranked duels outside brackets:
// pending -> accepted -> reported -> completed, pending -> declined, or
// reported -> declined when the other side rejects the report.
type ChallengeService interface {
	Create(ctx context.Context, challengerID int, input CreateChallengeInput) (*models.Challenge, error)
	Accept(ctx context.Context, actorID, challengeID int) (*models.Challenge, error)
	Decline(ctx context.Context, actorID, challengeID int) (*models.Challenge, error)
	Report(ctx context.Context, actorID, challengeID int, input ReportChallengeInput) (*models.Challenge, error)
	Confirm(ctx context.Context, actorID, challengeID int) (*models.Challenge, error)
	Get(ctx context.Context, challengeID int) (*models.Challenge, error)
	ListForUser(ctx context.Context, userID int) ([]*models.Challenge, error)
}

type challengeService struct {
	tx            repositories.Transactor
	challengeRepo repositories.ChallengeRepository
	userRepo      repositories.UserRepository
	ratingService RatingService
	publisher     publisher
	metrics       metrics.Recorder
	logger        *slog.Logger
	now           func() time.Time
}

func NewChallengeService(
	tx repositories.Transactor,
	challengeRepo repositories.ChallengeRepository,
	userRepo repositories.UserRepository,
	ratingService RatingService,
	notifier notify.Notifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
) ChallengeService {
	return &challengeService{
		tx:            tx,
		challengeRepo: challengeRepo,
		userRepo:      userRepo,
		ratingService: ratingService,
		publisher:     publisher{notifier: notifier, metrics: recorder, logger: logger},
		metrics:       recorder,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *challengeService) Create(ctx context.Context, challengerID int, input CreateChallengeInput) (*models.Challenge, error) {
	if input.OpponentID <= 0 {
		return nil, fmt.Errorf("%w: opponent_id is required", ErrValidationFailed)
	}
	if input.OpponentID == challengerID {
		return nil, ErrChallengeSelf
	}
	if _, err := s.userRepo.GetByID(ctx, nil, input.OpponentID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("opponent %d: %w", input.OpponentID, ErrUserNotFound)
		}
		return nil, err
	}

	c := &models.Challenge{
		ChallengerID: challengerID,
		OpponentID:   input.OpponentID,
		Status:       models.ChallengeStatusPending,
		Message:      trimmedOrNil(input.Message),
	}
	if err := s.challengeRepo.Create(ctx, nil, c); err != nil {
		if errors.Is(err, repositories.ErrChallengeUserInvalid) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	s.publisher.publish(ctx, challengeEvent(c))
	return c, nil
}

func (s *challengeService) Get(ctx context.Context, challengeID int) (*models.Challenge, error) {
	c, err := s.challengeRepo.GetByID(ctx, nil, challengeID)
	if err != nil {
		return nil, mapChallengeLookupError(err, challengeID)
	}
	return c, nil
}

func (s *challengeService) ListForUser(ctx context.Context, userID int) ([]*models.Challenge, error) {
	return s.challengeRepo.ListByUser(ctx, nil, userID)
}

func (s *challengeService) Accept(ctx context.Context, actorID, challengeID int) (*models.Challenge, error) {
	return s.respond(ctx, "challenge_accept", actorID, challengeID, models.ChallengeStatusAccepted)
}

func (s *challengeService) Decline(ctx context.Context, actorID, challengeID int) (*models.Challenge, error) {
	return s.respond(ctx, "challenge_decline", actorID, challengeID, models.ChallengeStatusDeclined)
}

// respond is the opponent's answer to a pending challenge. Decline also
// voids a reported challenge when it comes from the side that did not
// report; no rating is applied.
func (s *challengeService) respond(ctx context.Context, op string, actorID, challengeID int, status models.ChallengeStatus) (*models.Challenge, error) {
	c, changed, err := s.mutate(ctx, challengeID, func(ctx context.Context, exec repositories.SQLExecutor, c *models.Challenge) (bool, error) {
		if c.Status == models.ChallengeStatusReported && status == models.ChallengeStatusDeclined {
			return voidReport(c, actorID)
		}
		if c.OpponentID != actorID {
			if c.ChallengerID == actorID {
				return false, ErrForbiddenOperation
			}
			return false, ErrNotAParticipant
		}
		if c.Status == status {
			return false, nil
		}
		if c.Status != models.ChallengeStatusPending {
			return false, fmt.Errorf("%w: challenge is %s", ErrInvalidTransition, c.Status)
		}
		c.Status = status
		return true, nil
	})
	return s.finish(ctx, op, actorID, challengeID, c, changed, err)
}

func voidReport(c *models.Challenge, actorID int) (bool, error) {
	if !c.HasUser(actorID) {
		return false, ErrNotAParticipant
	}
	if c.ReportedBy != nil && *c.ReportedBy == actorID {
		return false, ErrSelfConfirmation
	}
	c.Status = models.ChallengeStatusDeclined
	return true, nil
}

func (s *challengeService) Report(ctx context.Context, actorID, challengeID int, input ReportChallengeInput) (*models.Challenge, error) {
	c, changed, err := s.mutate(ctx, challengeID, func(ctx context.Context, exec repositories.SQLExecutor, c *models.Challenge) (bool, error) {
		if !c.HasUser(actorID) {
			return false, ErrNotAParticipant
		}
		if !c.HasUser(input.WinnerID) {
			return false, fmt.Errorf("%w: winner %d is not in this challenge", ErrInvalidScore, input.WinnerID)
		}
		switch c.Status {
		case models.ChallengeStatusAccepted:
		case models.ChallengeStatusReported:
			if c.ReportedBy != nil && *c.ReportedBy == actorID && c.ReportedWinnerID != nil && *c.ReportedWinnerID == input.WinnerID {
				return false, nil
			}
			return false, ErrAlreadyReported
		case models.ChallengeStatusCompleted:
			return false, ErrAlreadyFinalized
		default:
			return false, fmt.Errorf("%w: challenge is %s", ErrInvalidTransition, c.Status)
		}
		winner, reporter := input.WinnerID, actorID
		c.Status = models.ChallengeStatusReported
		c.ReportedWinnerID = &winner
		c.ReportedBy = &reporter
		return true, nil
	})
	return s.finish(ctx, "challenge_report", actorID, challengeID, c, changed, err)
}

// Confirm finalizes a reported challenge and applies the rating change in
// the same transaction. Win and loss counters are left untouched.
func (s *challengeService) Confirm(ctx context.Context, actorID, challengeID int) (*models.Challenge, error) {
	c, changed, err := s.mutate(ctx, challengeID, func(ctx context.Context, exec repositories.SQLExecutor, c *models.Challenge) (bool, error) {
		if !c.HasUser(actorID) {
			return false, ErrNotAParticipant
		}
		switch c.Status {
		case models.ChallengeStatusReported:
		case models.ChallengeStatusCompleted:
			return false, ErrAlreadyFinalized
		default:
			return false, fmt.Errorf("%w: challenge is %s", ErrInvalidTransition, c.Status)
		}
		if c.ReportedBy != nil && *c.ReportedBy == actorID {
			return false, ErrSelfConfirmation
		}

		winner := *c.ReportedWinnerID
		at := s.now().UTC()
		confirmer := actorID
		c.Status = models.ChallengeStatusCompleted
		c.WinnerID = &winner
		c.ConfirmedBy = &confirmer
		c.CompletedAt = &at

		id := c.ID
		_, err := s.ratingService.ApplyResult(ctx, exec, winner, c.Other(winner), RatingSource{
			ChallengeID: &id,
			Reason:      models.ReasonChallenge,
		})
		return true, err
	})
	return s.finish(ctx, "challenge_confirm", actorID, challengeID, c, changed, err)
}

type challengeMutation func(ctx context.Context, exec repositories.SQLExecutor, c *models.Challenge) (bool, error)

// mutate locks the challenge, applies fn and persists when fn reports a
// change.
func (s *challengeService) mutate(ctx context.Context, challengeID int, fn challengeMutation) (*models.Challenge, bool, error) {
	var (
		c       *models.Challenge
		changed bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		var err error
		c, err = s.challengeRepo.GetForUpdate(ctx, exec, challengeID)
		if err != nil {
			return mapChallengeLookupError(err, challengeID)
		}
		changed, err = fn(ctx, exec, c)
		if err != nil || !changed {
			return err
		}
		if err := s.challengeRepo.Update(ctx, exec, c); err != nil {
			if errors.Is(err, repositories.ErrChallengeVersionConflict) {
				return ErrConcurrentUpdate
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return c, changed, nil
}

func (s *challengeService) finish(ctx context.Context, op string, actorID, challengeID int, c *models.Challenge, changed bool, err error) (*models.Challenge, error) {
	if err != nil {
		s.metrics.RecordTransition(op, ErrorCode(err))
		logRejection(ctx, s.logger, op, actorID, []slog.Attr{slog.Int("challenge_id", challengeID)}, err)
		return nil, err
	}
	if !changed {
		s.metrics.RecordTransition(op, "noop")
		return c, nil
	}
	s.metrics.RecordTransition(op, "ok")
	s.logger.InfoContext(ctx, "challenge updated",
		slog.String("op", op),
		slog.Int("challenge_id", c.ID),
		slog.String("status", string(c.Status)),
		slog.Int("actor_id", actorID),
	)
	s.publisher.publish(ctx, challengeEvent(c))
	return c, nil
}

func challengeEvent(c *models.Challenge) notify.Event {
	ev := notify.NewEvent(notify.EventChallengeUpdated, c)
	ev.ChallengeID = c.ID
	return ev
}

func mapChallengeLookupError(err error, challengeID int) error {
	if errors.Is(err, repositories.ErrChallengeNotFound) {
		return fmt.Errorf("challenge %d: %w", challengeID, ErrChallengeNotFound)
	}
	return err
}
