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
)

// BracketAdvancement moves the winner of a finalized match into its next
// match, or completes the tournament when the final is decided.
type BracketAdvancement struct {
	matchRepo      repositories.MatchRepository
	tournamentRepo repositories.TournamentRepository
	finalizer      *Finalizer
	metrics        metrics.Recorder
	logger         *slog.Logger
	now            func() time.Time
}

func NewBracketAdvancement(
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	finalizer *Finalizer,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *BracketAdvancement {
	return &BracketAdvancement{
		matchRepo:      matchRepo,
		tournamentRepo: tournamentRepo,
		finalizer:      finalizer,
		metrics:        recorder,
		logger:         logger,
		now:            time.Now,
	}
}

func (a *BracketAdvancement) Name() string { return "advancement" }

func (a *BracketAdvancement) OnMatchFinalized(ctx context.Context, uow *UnitOfWork, ev models.MatchFinalized) error {
	match, err := a.matchRepo.GetByID(ctx, uow.Exec, ev.MatchID)
	if err != nil {
		return fmt.Errorf("failed to reload finalized match %d: %w", ev.MatchID, err)
	}

	if match.NextMatchID == nil {
		return a.completeTournament(ctx, uow, ev)
	}
	return a.advance(ctx, uow, match, ev.WinnerID)
}

func (a *BracketAdvancement) completeTournament(ctx context.Context, uow *UnitOfWork, ev models.MatchFinalized) error {
	t, err := a.tournamentRepo.GetForUpdate(ctx, uow.Exec, ev.TournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to lock tournament %d: %w", ev.TournamentID, err)
	}
	if t.Status != models.StatusActive {
		return a.conflict(ctx, ev.TournamentID, ev.MatchID,
			fmt.Sprintf("final completed while tournament is %q", t.Status))
	}

	if err := a.tournamentRepo.Complete(ctx, uow.Exec, t.ID, ev.WinnerID, a.now().UTC()); err != nil {
		return fmt.Errorf("failed to complete tournament %d: %w", t.ID, err)
	}

	a.logger.InfoContext(ctx, "tournament completed",
		slog.Int("tournament_id", t.ID),
		slog.Int("champion_participant_id", ev.WinnerID),
	)
	done := notify.NewEvent(notify.EventTournamentCompleted, map[string]int{"champion_participant_id": ev.WinnerID})
	done.TournamentID = t.ID
	done.MatchID = ev.MatchID
	uow.Emit(done)
	return nil
}

func (a *BracketAdvancement) advance(ctx context.Context, uow *UnitOfWork, from *models.TournamentMatch, winnerID int) error {
	if from.WinnerToSlot == nil {
		return a.conflict(ctx, from.TournamentID, from.ID, "match has a next match but no target slot")
	}
	slot := *from.WinnerToSlot

	next, err := a.matchRepo.GetForUpdate(ctx, uow.Exec, *from.NextMatchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return a.conflict(ctx, from.TournamentID, from.ID, fmt.Sprintf("next match %d does not exist", *from.NextMatchID))
		}
		return fmt.Errorf("failed to lock next match %d: %w", *from.NextMatchID, err)
	}

	if occupant := next.Slot(slot); occupant != nil {
		if *occupant == winnerID {
			// Already placed by an earlier run of the same finalization.
			return nil
		}
		return a.conflict(ctx, from.TournamentID, from.ID,
			fmt.Sprintf("slot %d of match %d already holds participant %d, cannot place %d", slot, next.ID, *occupant, winnerID))
	}
	if next.Status != models.MatchStatusPending && next.Status != models.MatchStatusBye {
		return a.conflict(ctx, from.TournamentID, from.ID,
			fmt.Sprintf("next match %d is already %q", next.ID, next.Status))
	}

	w := winnerID
	next.SetSlot(slot, &w)
	if err := a.matchRepo.Update(ctx, uow.Exec, next); err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			return fmt.Errorf("next match %d: %w", next.ID, ErrConcurrentUpdate)
		}
		return fmt.Errorf("failed to place participant %d into match %d: %w", winnerID, next.ID, err)
	}

	a.logger.InfoContext(ctx, "participant advanced",
		slog.Int("tournament_id", from.TournamentID),
		slog.Int("from_match_id", from.ID),
		slog.Int("to_match_id", next.ID),
		slog.Int("slot", slot),
		slog.Int("participant_id", winnerID),
	)
	updated := notify.NewEvent(notify.EventBracketUpdated, map[string]int{
		"match_id": next.ID, "slot": slot, "participant_id": winnerID,
	})
	updated.TournamentID = from.TournamentID
	updated.MatchID = next.ID
	uow.Emit(updated)

	// The other side of the next match is a bye: nobody will ever fill it.
	if next.ByeSlot != nil && next.Slot(*next.ByeSlot) == nil && next.SlotsFilled() == 1 {
		if _, _, err := a.finalizer.Apply(ctx, uow, next, ledger.Bye{AllowByes: true, At: a.now().UTC()}); err != nil {
			return fmt.Errorf("failed to cascade bye in match %d: %w", next.ID, err)
		}
	}
	return nil
}

func (a *BracketAdvancement) conflict(ctx context.Context, tournamentID, matchID int, detail string) error {
	a.metrics.RecordAdvancementConflict()
	a.logger.ErrorContext(ctx, "bracket advancement conflict",
		slog.Int("tournament_id", tournamentID),
		slog.Int("match_id", matchID),
		slog.String("detail", detail),
	)
	return fmt.Errorf("%w: tournament %d match %d: %s", ErrAdvancementConflict, tournamentID, matchID, detail)
}
