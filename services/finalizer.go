package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/ranked-portal/ledger"
	"github.com/Dosada05/ranked-portal/metrics"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/notify"
	"github.com/Dosada05/ranked-portal/repositories"
)

// UnitOfWork carries one transaction and the notifications to publish once
// it commits.
type UnitOfWork struct {
	Exec        repositories.SQLExecutor
	events      []notify.Event
	transitions []appliedTransition
}

// appliedTransition is counted only after the transaction settles.
type appliedTransition struct {
	event   string
	outcome string
}

func (u *UnitOfWork) Emit(ev notify.Event) {
	u.events = append(u.events, ev)
}

func (u *UnitOfWork) Events() []notify.Event {
	return u.events
}

// Settle records the transitions applied in u once its transaction has
// committed (err == nil) or rolled back. Rejections raised by
// Finalizer.Apply itself are recorded when they happen.
func (u *UnitOfWork) Settle(recorder metrics.Recorder, err error) {
	for _, t := range u.transitions {
		outcome := t.outcome
		if err != nil {
			outcome = ErrorCode(err)
		}
		recorder.RecordTransition(t.event, outcome)
	}
	u.transitions = nil
}

// FinalizationListener reacts to a match reaching a terminal state. It runs
// inside the finalizing transaction; an error rolls the finalization back.
type FinalizationListener interface {
	Name() string
	OnMatchFinalized(ctx context.Context, uow *UnitOfWork, ev models.MatchFinalized) error
}

// Finalizer applies ledger events to locked match rows, persists the new
// version and dispatches MatchFinalized to its listeners.
type Finalizer struct {
	matchRepo repositories.MatchRepository
	listeners []FinalizationListener
	metrics   metrics.Recorder
	logger    *slog.Logger
}

func NewFinalizer(matchRepo repositories.MatchRepository, recorder metrics.Recorder, logger *slog.Logger) *Finalizer {
	return &Finalizer{matchRepo: matchRepo, metrics: recorder, logger: logger}
}

// Subscribe adds listeners; they run in subscription order.
func (f *Finalizer) Subscribe(listeners ...FinalizationListener) {
	f.listeners = append(f.listeners, listeners...)
}

// Apply expects m to be locked by uow's transaction.
func (f *Finalizer) Apply(ctx context.Context, uow *UnitOfWork, m *models.TournamentMatch, ev ledger.Event) (*models.TournamentMatch, ledger.Outcome, error) {
	name := ledger.Name(ev)

	next, outcome, err := ledger.Apply(m, ev)
	if err != nil {
		f.metrics.RecordTransition(name, ErrorCode(err))
		return nil, outcome, fmt.Errorf("match %d: %w", m.ID, err)
	}
	if outcome.Noop {
		uow.transitions = append(uow.transitions, appliedTransition{name, "noop"})
		return next, outcome, nil
	}

	if err := f.matchRepo.Update(ctx, uow.Exec, next); err != nil {
		if errors.Is(err, repositories.ErrMatchVersionConflict) {
			f.metrics.RecordTransition(name, ErrorCode(ErrConcurrentUpdate))
			return nil, outcome, fmt.Errorf("match %d: %w", m.ID, ErrConcurrentUpdate)
		}
		return nil, outcome, fmt.Errorf("failed to store match %d: %w", m.ID, err)
	}

	if outcome.Finalized != nil {
		for _, l := range f.listeners {
			if err := l.OnMatchFinalized(ctx, uow, *outcome.Finalized); err != nil {
				f.metrics.RecordTransition(name, ErrorCode(err))
				return nil, outcome, fmt.Errorf("%s listener for match %d: %w", l.Name(), m.ID, err)
			}
		}
	}

	uow.transitions = append(uow.transitions, appliedTransition{name, "ok"})
	f.logger.InfoContext(ctx, "match transition applied",
		slog.String("event", name),
		slog.Int("match_id", next.ID),
		slog.Int("tournament_id", next.TournamentID),
		slog.String("status", string(next.Status)),
		slog.Int("version", next.Version),
	)
	return next, outcome, nil
}
