package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/ranked-portal/metrics"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/notify"
	"github.com/Dosada05/ranked-portal/repositories"
)

// --- Общие хелперы ---

// trimmedOrNil returns nil for empty or whitespace-only input.
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// isValidStatusTransition: completed is reached only through the final
// match, never by request.
func isValidStatusTransition(current, next models.TournamentStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentStatus][]models.TournamentStatus{
		models.StatusRegistration: {models.StatusCheckIn, models.StatusActive, models.StatusCancelled},
		models.StatusCheckIn:      {models.StatusRegistration, models.StatusActive, models.StatusCancelled},
		models.StatusActive:       {models.StatusCompleted, models.StatusCancelled},
		models.StatusCompleted:    {},
		models.StatusCancelled:    {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// publisher delivers committed events. Delivery is best effort.
type publisher struct {
	notifier notify.Notifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func (p publisher) publish(ctx context.Context, events ...notify.Event) {
	if p.notifier == nil {
		return
	}
	for _, ev := range events {
		if err := p.notifier.Notify(ctx, ev); err != nil {
			p.metrics.RecordNotificationDropped()
			p.logger.WarnContext(ctx, "failed to publish event",
				slog.String("event_id", ev.ID),
				slog.String("type", string(ev.Type)),
				slog.Any("error", err),
			)
		}
	}
}

// logRejection records refused operations; authorization failures are
// logged at WARN for abuse monitoring.
func logRejection(ctx context.Context, logger *slog.Logger, op string, actorID int, attrs []slog.Attr, err error) {
	level := slog.LevelDebug
	switch {
	case IsAuthorizationFailure(err):
		level = slog.LevelWarn
	case errors.Is(err, ErrAdvancementConflict):
		level = slog.LevelError
	case ErrorCode(err) == "internal":
		level = slog.LevelError
	}
	all := append([]slog.Attr{
		slog.String("op", op),
		slog.Int("actor_id", actorID),
		slog.String("code", ErrorCode(err)),
		slog.Any("error", err),
	}, attrs...)
	logger.LogAttrs(ctx, level, "operation rejected", all...)
}

// actingParticipant resolves the caller's registration in a tournament.
// Users without one are not participants of any of its matches.
func actingParticipant(ctx context.Context, repo repositories.ParticipantRepository, exec repositories.SQLExecutor, userID, tournamentID int) (*models.Participant, error) {
	p, err := repo.FindByUserAndTournament(ctx, exec, userID, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return nil, fmt.Errorf("user %d in tournament %d: %w", userID, tournamentID, ErrNotAParticipant)
		}
		return nil, err
	}
	return p, nil
}

func mapMatchLookupError(err error, matchID int) error {
	if errors.Is(err, repositories.ErrMatchNotFound) {
		return fmt.Errorf("match %d: %w", matchID, ErrMatchNotFound)
	}
	return err
}

func mapTournamentLookupError(err error, tournamentID int) error {
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return fmt.Errorf("tournament %d: %w", tournamentID, ErrTournamentNotFound)
	}
	return err
}
