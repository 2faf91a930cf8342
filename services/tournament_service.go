package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/ranked-portal/metrics"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/notify"
	"github.com/Dosada05/ranked-portal/repositories"
)

type CreateTournamentInput struct {
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	IsRanked        *bool     `json:"is_ranked,omitempty"`
	AllowByes       *bool     `json:"allow_byes,omitempty"`
	MaxParticipants int       `json:"max_participants"`
	StartDate       time.Time `json:"start_date"`
}

type TournamentService interface {
	CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error)
	GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error)
	Register(ctx context.Context, userID, tournamentID int) (*models.Participant, error)
	CheckIn(ctx context.Context, userID, tournamentID int) (*models.Participant, error)
	UpdateStatus(ctx context.Context, actorID, tournamentID int, status models.TournamentStatus) (*models.Tournament, error)
	// StartTournament activates the tournament and generates its bracket.
	StartTournament(ctx context.Context, actorID, tournamentID int) (*BracketView, error)
}

type tournamentService struct {
	tx               repositories.Transactor
	tournamentRepo   repositories.TournamentRepository
	participantRepo  repositories.ParticipantRepository
	bracketService   BracketService
	authorizer       Authorizer
	publisher        publisher
	logger           *slog.Logger
	defaultAllowByes bool
	now              func() time.Time
}

func NewTournamentService(
	tx repositories.Transactor,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketService BracketService,
	authorizer Authorizer,
	notifier notify.Notifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
	defaultAllowByes bool,
) TournamentService {
	return &tournamentService{
		tx:               tx,
		tournamentRepo:   tournamentRepo,
		participantRepo:  participantRepo,
		bracketService:   bracketService,
		authorizer:       authorizer,
		publisher:        publisher{notifier: notifier, metrics: recorder, logger: logger},
		logger:           logger,
		defaultAllowByes: defaultAllowByes,
		now:              time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, organizerID int, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: tournament name is required", ErrValidationFailed)
	}
	if input.MaxParticipants == 0 {
		input.MaxParticipants = 64
	}
	if input.MaxParticipants < 2 {
		return nil, fmt.Errorf("%w: max participants must be at least 2", ErrValidationFailed)
	}
	if input.StartDate.IsZero() {
		input.StartDate = s.now().UTC()
	}

	t := &models.Tournament{
		Name:            name,
		Description:     trimmedOrNil(input.Description),
		OrganizerID:     organizerID,
		Status:          models.StatusRegistration,
		IsRanked:        true,
		AllowByes:       s.defaultAllowByes,
		MaxParticipants: input.MaxParticipants,
		StartDate:       input.StartDate,
	}
	if input.IsRanked != nil {
		t.IsRanked = *input.IsRanked
	}
	if input.AllowByes != nil {
		t.AllowByes = *input.AllowByes
	}

	if err := s.tournamentRepo.Create(ctx, nil, t); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentNameConflict):
			return nil, ErrTournamentNameConflict
		case errors.Is(err, repositories.ErrTournamentInvalidOrg):
			return nil, fmt.Errorf("organizer %d: %w", organizerID, ErrUserNotFound)
		}
		return nil, err
	}
	s.logger.InfoContext(ctx, "tournament created", slog.Int("tournament_id", t.ID), slog.Int("organizer_id", organizerID))
	return t, nil
}

func (s *tournamentService) GetTournament(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapTournamentLookupError(err, tournamentID)
	}
	return t, nil
}

func (s *tournamentService) Register(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	var p *models.Participant
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentLookupError(err, tournamentID)
		}
		if t.Status != models.StatusRegistration {
			return ErrRegistrationNotOpen
		}
		registered, err := s.participantRepo.ListByTournament(ctx, exec, tournamentID, false)
		if err != nil {
			return err
		}
		if len(registered) >= t.MaxParticipants {
			return ErrTournamentFull
		}

		p = &models.Participant{TournamentID: tournamentID, UserID: userID}
		if err := s.participantRepo.Create(ctx, exec, p); err != nil {
			switch {
			case errors.Is(err, repositories.ErrParticipantConflict):
				return ErrRegistrationConflict
			case errors.Is(err, repositories.ErrParticipantUserInvalid):
				return fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *tournamentService) CheckIn(ctx context.Context, userID, tournamentID int) (*models.Participant, error) {
	var p *models.Participant
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		t, err := s.tournamentRepo.GetByID(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentLookupError(err, tournamentID)
		}
		if t.Status != models.StatusCheckIn {
			return ErrCheckInNotOpen
		}
		p, err = s.participantRepo.FindByUserAndTournament(ctx, exec, userID, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return ErrParticipantNotFound
			}
			return err
		}
		if p.CheckedIn {
			return nil
		}
		at := s.now().UTC()
		if err := s.participantRepo.SetCheckedIn(ctx, exec, p.ID, at); err != nil {
			return err
		}
		p.CheckedIn = true
		p.CheckedInAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *tournamentService) requireManager(ctx context.Context, actorID int, t *models.Tournament) error {
	ok, err := s.authorizer.CanManageTournament(ctx, actorID, t)
	if err != nil {
		return fmt.Errorf("failed to check tournament permissions: %w", err)
	}
	if !ok {
		return ErrForbiddenOperation
	}
	return nil
}

// UpdateStatus handles manual transitions. Activation goes through
// StartTournament and completion only happens through the final match.
func (s *tournamentService) UpdateStatus(ctx context.Context, actorID, tournamentID int, status models.TournamentStatus) (*models.Tournament, error) {
	switch status {
	case models.StatusRegistration, models.StatusCheckIn, models.StatusCancelled:
	case models.StatusActive, models.StatusCompleted:
		return nil, fmt.Errorf("%w: %q cannot be set directly", ErrTournamentInvalidStatusTransition, status)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidationFailed, status)
	}

	var t *models.Tournament
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		var err error
		t, err = s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentLookupError(err, tournamentID)
		}
		if err := s.requireManager(ctx, actorID, t); err != nil {
			return err
		}
		if !isValidStatusTransition(t.Status, status) {
			return fmt.Errorf("%w: %q -> %q", ErrTournamentInvalidStatusTransition, t.Status, status)
		}
		if t.Status == status {
			return nil
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, status); err != nil {
			return err
		}
		t.Status = status
		return nil
	})
	if err != nil {
		logRejection(ctx, s.logger, "update_status", actorID, []slog.Attr{slog.Int("tournament_id", tournamentID)}, err)
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) StartTournament(ctx context.Context, actorID, tournamentID int) (*BracketView, error) {
	uow := &UnitOfWork{}
	var view *BracketView
	err := s.tx.WithinTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		uow.Exec = exec
		t, err := s.tournamentRepo.GetForUpdate(ctx, exec, tournamentID)
		if err != nil {
			return mapTournamentLookupError(err, tournamentID)
		}
		if err := s.requireManager(ctx, actorID, t); err != nil {
			return err
		}
		if t.Status != models.StatusRegistration && t.Status != models.StatusCheckIn {
			return fmt.Errorf("%w: cannot start a tournament in status %q", ErrTournamentInvalidStatusTransition, t.Status)
		}

		// During check-in only participants who checked in are seeded.
		participants, err := s.participantRepo.ListByTournament(ctx, exec, t.ID, t.Status == models.StatusCheckIn)
		if err != nil {
			return err
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, t.ID, models.StatusActive); err != nil {
			return err
		}
		t.Status = models.StatusActive

		matches, err := s.bracketService.GenerateAndSaveBracket(ctx, uow, t, participants)
		if err != nil {
			return err
		}
		view = &BracketView{Tournament: t, Rounds: groupByRound(matches)}
		return nil
	})
	uow.Settle(s.publisher.metrics, err)
	if err != nil {
		logRejection(ctx, s.logger, "start", actorID, []slog.Attr{slog.Int("tournament_id", tournamentID)}, err)
		return nil, err
	}

	started := notify.NewEvent(notify.EventBracketUpdated, map[string]int{"round_count": view.Tournament.RoundCount})
	started.TournamentID = tournamentID
	s.publisher.publish(ctx, append([]notify.Event{started}, uow.Events()...)...)
	return view, nil
}
