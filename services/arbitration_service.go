package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/ranked-portal/ledger"
	"github.com/Dosada05/ranked-portal/metrics"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/notify"
	"github.com/Dosada05/ranked-portal/repositories"
	"github.com/Dosada05/ranked-portal/storage"
)

type ResolveDisputeInput struct {
	Resolution models.DisputeResolution `json:"resolution"`
	Notes      *string                  `json:"notes,omitempty"`
	// Optional corrected scores; both or neither.
	Player1Score *int `json:"player1_score,omitempty"`
	Player2Score *int `json:"player2_score,omitempty"`
}

type DisputeResolutionResult struct {
	Dispute *models.Dispute         `json:"dispute"`
	Match   *models.TournamentMatch `json:"match"`
}

type ArbitrationService interface {
	ResolveDispute(ctx context.Context, moderatorID, disputeID int, input ResolveDisputeInput) (*DisputeResolutionResult, error)
	GetDispute(ctx context.Context, actorID, disputeID int) (*models.Dispute, error)
	ListDisputes(ctx context.Context, actorID int, filter repositories.ListDisputesFilter) ([]*models.Dispute, error)
}

const evidenceLinkTTL = 15 * time.Minute

type arbitrationService struct {
	tx             repositories.Transactor
	disputeRepo    repositories.DisputeRepository
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	authorizer     Authorizer
	finalizer      *Finalizer
	uploader       storage.FileUploader
	publisher      publisher
	logger         *slog.Logger
	now            func() time.Time
}

func NewArbitrationService(
	tx repositories.Transactor,
	disputeRepo repositories.DisputeRepository,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	authorizer Authorizer,
	finalizer *Finalizer,
	uploader storage.FileUploader,
	notifier notify.Notifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
) ArbitrationService {
	return &arbitrationService{
		tx:             tx,
		disputeRepo:    disputeRepo,
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		authorizer:     authorizer,
		finalizer:      finalizer,
		uploader:       uploader,
		publisher:      publisher{notifier: notifier, metrics: recorder, logger: logger},
		logger:         logger,
		now:            time.Now,
	}
}

func (s *arbitrationService) requireModerator(ctx context.Context, actorID int) error {
	ok, err := s.authorizer.CanArbitrate(ctx, actorID)
	if err != nil {
		return fmt.Errorf("failed to check moderator capability: %w", err)
	}
	if !ok {
		return fmt.Errorf("user %d: %w", actorID, ErrNotModerator)
	}
	return nil
}

func (s *arbitrationService) ResolveDispute(ctx context.Context, moderatorID, disputeID int, input ResolveDisputeInput) (*DisputeResolutionResult, error) {
	attrs := []slog.Attr{slog.Int("dispute_id", disputeID)}
	if err := s.requireModerator(ctx, moderatorID); err != nil {
		logRejection(ctx, s.logger, "resolve", moderatorID, attrs, err)
		return nil, err
	}
	if !input.Resolution.Valid() {
		return nil, fmt.Errorf("%w: unknown resolution %q", ErrValidationFailed, input.Resolution)
	}

	result := &DisputeResolutionResult{}
	uow := &UnitOfWork{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		uow.Exec = exec

		// Lock order is match, then dispute, the same as when a dispute is opened.
		d, err := s.disputeRepo.GetByID(ctx, exec, disputeID)
		if err != nil {
			return s.mapDisputeLookupError(err, disputeID)
		}
		m, err := s.matchRepo.GetForUpdate(ctx, exec, d.MatchID)
		if err != nil {
			return mapMatchLookupError(err, d.MatchID)
		}
		d, err = s.disputeRepo.GetForUpdate(ctx, exec, disputeID)
		if err != nil {
			return s.mapDisputeLookupError(err, disputeID)
		}
		if d.Status == models.DisputeStatusResolved {
			return fmt.Errorf("dispute %d: %w", d.ID, ErrDisputeAlreadyResolved)
		}
		t, err := s.tournamentRepo.GetByID(ctx, exec, m.TournamentID)
		if err != nil {
			return mapTournamentLookupError(err, m.TournamentID)
		}
		if err := checkArbitrable(t, input.Resolution); err != nil {
			return err
		}

		at := s.now().UTC()
		next, _, err := s.finalizer.Apply(ctx, uow, m, ledger.Arbitrate{
			Resolution: input.Resolution,
			Score1:     input.Player1Score,
			Score2:     input.Player2Score,
			At:         at,
		})
		if err != nil {
			return err
		}

		resolution := input.Resolution
		mod := moderatorID
		d.Status = models.DisputeStatusResolved
		d.Resolution = &resolution
		d.ResolutionNotes = trimmedOrNil(input.Notes)
		d.ResolvedBy = &mod
		d.ResolvedAt = &at
		if err := s.disputeRepo.Resolve(ctx, exec, d); err != nil {
			if errors.Is(err, repositories.ErrDisputeNotFound) {
				return fmt.Errorf("dispute %d: %w", d.ID, ErrDisputeAlreadyResolved)
			}
			return err
		}

		result.Dispute = d
		result.Match = next
		return nil
	})
	uow.Settle(s.publisher.metrics, err)
	if err != nil {
		logRejection(ctx, s.logger, "resolve", moderatorID, attrs, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "dispute resolved",
		slog.Int("dispute_id", result.Dispute.ID),
		slog.Int("match_id", result.Match.ID),
		slog.String("resolution", string(input.Resolution)),
		slog.Int("moderator_id", moderatorID),
	)

	s.fillEvidenceURL(ctx, result.Dispute)
	ev := notify.NewEvent(notify.EventDisputeResolved, result)
	ev.TournamentID = result.Match.TournamentID
	ev.MatchID = result.Match.ID
	ev.DisputeID = result.Dispute.ID
	s.publisher.publish(ctx, append([]notify.Event{ev}, uow.Events()...)...)
	return result, nil
}

// checkArbitrable allows any ruling while the tournament runs. A cancelled
// tournament only accepts annulment, which closes the dispute without
// touching ratings or the bracket.
func checkArbitrable(t *models.Tournament, resolution models.DisputeResolution) error {
	switch {
	case t.Status == models.StatusActive:
		return nil
	case t.Status == models.StatusCancelled && resolution == models.ResolutionAnnul:
		return nil
	default:
		return fmt.Errorf("tournament %d is %q: %w", t.ID, t.Status, ErrTournamentNotActive)
	}
}

func (s *arbitrationService) GetDispute(ctx context.Context, actorID, disputeID int) (*models.Dispute, error) {
	if err := s.requireModerator(ctx, actorID); err != nil {
		logRejection(ctx, s.logger, "get_dispute", actorID, []slog.Attr{slog.Int("dispute_id", disputeID)}, err)
		return nil, err
	}
	d, err := s.disputeRepo.GetByID(ctx, nil, disputeID)
	if err != nil {
		return nil, s.mapDisputeLookupError(err, disputeID)
	}
	s.fillEvidenceURL(ctx, d)
	return d, nil
}

func (s *arbitrationService) ListDisputes(ctx context.Context, actorID int, filter repositories.ListDisputesFilter) ([]*models.Dispute, error) {
	if err := s.requireModerator(ctx, actorID); err != nil {
		logRejection(ctx, s.logger, "list_disputes", actorID, nil, err)
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	disputes, err := s.disputeRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, err
	}
	for _, d := range disputes {
		s.fillEvidenceURL(ctx, d)
	}
	return disputes, nil
}

// fillEvidenceURL attaches a short-lived download link; evidence is private.
func (s *arbitrationService) fillEvidenceURL(ctx context.Context, d *models.Dispute) {
	if d == nil || d.EvidenceRef == nil || s.uploader == nil {
		return
	}
	if !isEvidenceKeyOf(d.MatchID, *d.EvidenceRef) {
		s.logger.WarnContext(ctx, "evidence ref outside match prefix", slog.Int("dispute_id", d.ID))
		return
	}
	link, err := s.uploader.PresignGet(ctx, *d.EvidenceRef, evidenceLinkTTL)
	if err != nil {
		if !errors.Is(err, storage.ErrStorageDisabled) {
			s.logger.WarnContext(ctx, "failed to presign evidence", slog.Int("dispute_id", d.ID), slog.Any("error", err))
		}
		return
	}
	d.EvidenceURL = &link
}

func (s *arbitrationService) mapDisputeLookupError(err error, disputeID int) error {
	if errors.Is(err, repositories.ErrDisputeNotFound) {
		return fmt.Errorf("dispute %d: %w", disputeID, ErrDisputeNotFound)
	}
	return err
}
