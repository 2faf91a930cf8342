package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/ranked-portal/ledger"
	"github.com/Dosada05/ranked-portal/metrics"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/notify"
	"github.com/Dosada05/ranked-portal/repositories"
)

type ReportResultInput struct {
	WinnerParticipantID int     `json:"winner_participant_id"`
	Player1Score        int     `json:"player1_score"`
	Player2Score        int     `json:"player2_score"`
	EvidenceRef         *string `json:"evidence_ref,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

type DisputeResultInput struct {
	Reason      string  `json:"reason"`
	EvidenceRef *string `json:"evidence_ref,omitempty"`
}

// MatchService is the participant-facing side of the result lifecycle.
// Actors are users; they are resolved to their participant registration in
// the match's tournament.
type MatchService interface {
	GetMatch(ctx context.Context, matchID int) (*models.TournamentMatch, error)
	ReportResult(ctx context.Context, actorUserID, matchID int, input ReportResultInput) (*models.TournamentMatch, error)
	ConfirmResult(ctx context.Context, actorUserID, matchID int) (*models.TournamentMatch, error)
	DisputeResult(ctx context.Context, actorUserID, matchID int, input DisputeResultInput) (*models.Dispute, error)
}

type matchService struct {
	tx              repositories.Transactor
	matchRepo       repositories.MatchRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	disputeRepo     repositories.DisputeRepository
	finalizer       *Finalizer
	publisher       publisher
	logger          *slog.Logger
	now             func() time.Time
}

func NewMatchService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	disputeRepo repositories.DisputeRepository,
	finalizer *Finalizer,
	notifier notify.Notifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tx:              tx,
		matchRepo:       matchRepo,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		disputeRepo:     disputeRepo,
		finalizer:       finalizer,
		publisher:       publisher{notifier: notifier, metrics: recorder, logger: logger},
		logger:          logger,
		now:             time.Now,
	}
}

func (s *matchService) GetMatch(ctx context.Context, matchID int) (*models.TournamentMatch, error) {
	m, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		return nil, mapMatchLookupError(err, matchID)
	}
	return m, nil
}

// lockForActor locks the match, checks its tournament is running and
// resolves the actor's participant id.
func (s *matchService) lockForActor(ctx context.Context, exec repositories.SQLExecutor, actorUserID, matchID int) (*models.TournamentMatch, int, error) {
	m, err := s.matchRepo.GetForUpdate(ctx, exec, matchID)
	if err != nil {
		return nil, 0, mapMatchLookupError(err, matchID)
	}
	t, err := s.tournamentRepo.GetByID(ctx, exec, m.TournamentID)
	if err != nil {
		return nil, 0, mapTournamentLookupError(err, m.TournamentID)
	}
	p, err := actingParticipant(ctx, s.participantRepo, exec, actorUserID, m.TournamentID)
	if err != nil {
		return nil, 0, err
	}
	// A finished match reports AlreadyFinalized regardless of the tournament.
	if t.Status != models.StatusActive && m.Status != models.MatchStatusCompleted {
		return nil, 0, fmt.Errorf("tournament %d is %q: %w", t.ID, t.Status, ErrTournamentNotActive)
	}
	return m, p.ID, nil
}

func (s *matchService) ReportResult(ctx context.Context, actorUserID, matchID int, input ReportResultInput) (*models.TournamentMatch, error) {
	var (
		result *models.TournamentMatch
		noop   bool
	)
	evidence, err := evidenceRef(matchID, input.EvidenceRef)
	if err != nil {
		return nil, err
	}
	uow := &UnitOfWork{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		uow.Exec = exec
		m, reporter, err := s.lockForActor(ctx, exec, actorUserID, matchID)
		if err != nil {
			return err
		}
		next, outcome, err := s.finalizer.Apply(ctx, uow, m, ledger.Report{
			Reporter: reporter,
			Winner:   input.WinnerParticipantID,
			Score1:   input.Player1Score,
			Score2:   input.Player2Score,
			Evidence: evidence,
			Notes:    trimmedOrNil(input.Notes),
			At:       s.now().UTC(),
		})
		if err != nil {
			return err
		}
		result, noop = next, outcome.Noop
		return nil
	})
	uow.Settle(s.publisher.metrics, err)
	if err != nil {
		logRejection(ctx, s.logger, "report", actorUserID, []slog.Attr{slog.Int("match_id", matchID)}, err)
		return nil, err
	}

	if !noop {
		ev := notify.NewEvent(notify.EventMatchReported, result)
		ev.TournamentID = result.TournamentID
		ev.MatchID = result.ID
		s.publisher.publish(ctx, append(uow.Events(), ev)...)
	}
	return result, nil
}

func (s *matchService) ConfirmResult(ctx context.Context, actorUserID, matchID int) (*models.TournamentMatch, error) {
	var result *models.TournamentMatch
	uow := &UnitOfWork{}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		uow.Exec = exec
		m, confirmer, err := s.lockForActor(ctx, exec, actorUserID, matchID)
		if err != nil {
			return err
		}
		next, _, err := s.finalizer.Apply(ctx, uow, m, ledger.Confirm{Confirmer: confirmer, At: s.now().UTC()})
		if err != nil {
			return err
		}
		result = next
		return nil
	})
	uow.Settle(s.publisher.metrics, err)
	if err != nil {
		logRejection(ctx, s.logger, "confirm", actorUserID, []slog.Attr{slog.Int("match_id", matchID)}, err)
		return nil, err
	}

	ev := notify.NewEvent(notify.EventMatchConfirmed, result)
	ev.TournamentID = result.TournamentID
	ev.MatchID = result.ID
	s.publisher.publish(ctx, append([]notify.Event{ev}, uow.Events()...)...)
	return result, nil
}

func (s *matchService) DisputeResult(ctx context.Context, actorUserID, matchID int, input DisputeResultInput) (*models.Dispute, error) {
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: dispute reason is required", ErrValidationFailed)
	}
	evidence, err := evidenceRef(matchID, input.EvidenceRef)
	if err != nil {
		return nil, err
	}

	var dispute *models.Dispute
	uow := &UnitOfWork{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		uow.Exec = exec
		m, disputer, err := s.lockForActor(ctx, exec, actorUserID, matchID)
		if err != nil {
			return err
		}
		if _, _, err := s.finalizer.Apply(ctx, uow, m, ledger.Contest{Disputer: disputer}); err != nil {
			return err
		}

		d := &models.Dispute{
			MatchID:      m.ID,
			TournamentID: m.TournamentID,
			ReporterID:   disputer,
			Reason:       reason,
			EvidenceRef:  evidence,
			Status:       models.DisputeStatusPending,
		}
		if err := s.disputeRepo.Create(ctx, exec, d); err != nil {
			if errors.Is(err, repositories.ErrDisputeOpenConflict) {
				return fmt.Errorf("match %d: %w", m.ID, ErrDisputeAlreadyOpen)
			}
			return err
		}
		dispute = d
		return nil
	})
	uow.Settle(s.publisher.metrics, err)
	if err != nil {
		logRejection(ctx, s.logger, "dispute", actorUserID, []slog.Attr{slog.Int("match_id", matchID)}, err)
		return nil, err
	}

	ev := notify.NewEvent(notify.EventMatchDisputed, dispute)
	ev.TournamentID = dispute.TournamentID
	ev.MatchID = dispute.MatchID
	ev.DisputeID = dispute.ID
	s.publisher.publish(ctx, ev)
	return dispute, nil
}
