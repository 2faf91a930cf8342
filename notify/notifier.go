package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventMatchReported       EventType = "match_reported"
	EventMatchConfirmed      EventType = "match_confirmed"
	EventMatchDisputed       EventType = "match_disputed"
	EventDisputeResolved     EventType = "dispute_resolved"
	EventBracketUpdated      EventType = "bracket_updated"
	EventTournamentCompleted EventType = "tournament_completed"
	EventChallengeUpdated    EventType = "challenge_updated"
)

// Event is what the core tells the outside world after a transition has
// been committed.
type Event struct {
	ID           string      `json:"id"`
	Type         EventType   `json:"type"`
	TournamentID int         `json:"tournament_id,omitempty"`
	MatchID      int         `json:"match_id,omitempty"`
	DisputeID    int         `json:"dispute_id,omitempty"`
	ChallengeID  int         `json:"challenge_id,omitempty"`
	Payload      interface{} `json:"payload,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(t EventType, payload interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier is the sink for core events. Implementations are best effort:
// callers log a returned error and move on.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// HubNotifier pushes tournament events into the websocket room of the
// tournament.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Notify(_ context.Context, ev Event) error {
	if ev.TournamentID == 0 {
		return nil
	}
	room := RoomForTournament(ev.TournamentID)
	return n.hub.BroadcastToRoom(room, WebSocketMessage{Type: ev.Type, Payload: ev, RoomID: room})
}

// LogNotifier records events in the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	n.logger.InfoContext(ctx, "event published",
		slog.String("event_id", ev.ID),
		slog.String("type", string(ev.Type)),
		slog.Int("tournament_id", ev.TournamentID),
		slog.Int("match_id", ev.MatchID),
	)
	return nil
}

// Multi fans an event out to several notifiers and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async decouples the caller from the wrapped notifier with a buffered
// queue drained by one goroutine. When the queue is full the event is
// dropped.
type Async struct {
	next   Notifier
	queue  chan Event
	logger *slog.Logger
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed atomic.Bool
}

func NewAsync(next Notifier, buffer int, logger *slog.Logger) *Async {
	a := &Async{
		next:   next,
		queue:  make(chan Event, buffer),
		logger: logger,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) run() {
	defer a.wg.Done()
	for ev := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.next.Notify(ctx, ev); err != nil {
			a.logger.Warn("notification delivery failed",
				slog.String("event_id", ev.ID),
				slog.String("type", string(ev.Type)),
				slog.Any("error", err),
			)
		}
		cancel()
	}
}

func (a *Async) Notify(_ context.Context, ev Event) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed.Load() {
		return errors.New("notifier is closed")
	}
	select {
	case a.queue <- ev:
		return nil
	default:
		return errors.New("notification queue is full")
	}
}

// Close stops accepting events and waits for the queue to drain.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed.Swap(true) {
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
}
