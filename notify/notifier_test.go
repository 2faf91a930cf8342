package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingNotifier) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("smtp down")}

	err := Multi{ok, failing}.Notify(context.Background(), NewEvent(EventMatchReported, nil))
	assert.ErrorContains(t, err, "smtp down")
	assert.Equal(t, 1, ok.len())
	assert.Equal(t, 1, failing.len())
}

func TestAsyncDeliversAndDrains(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("ignored")}
	a := NewAsync(rec, 8, slog.Default())

	for i := 0; i < 5; i++ {
		require.NoError(t, a.Notify(context.Background(), NewEvent(EventBracketUpdated, i)))
	}
	a.Close()

	assert.Equal(t, 5, rec.len())
	assert.Error(t, a.Notify(context.Background(), NewEvent(EventBracketUpdated, nil)))
}

func TestNewEventHasIdentity(t *testing.T) {
	a := NewEvent(EventMatchDisputed, nil)
	b := NewEvent(EventMatchDisputed, nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.OccurredAt.IsZero())
}

func TestHubNotifierBroadcastsToTournamentRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(slog.Default())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := &Client{Hub: hub, Conn: conn, Send: make(chan []byte, 16), Room: RoomForTournament(7)}
		hub.Join(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount(RoomForTournament(7)) == 1
	}, time.Second, 10*time.Millisecond)

	ev := NewEvent(EventMatchConfirmed, map[string]int{"winner_id": 3})
	ev.TournamentID = 7
	ev.MatchID = 42
	require.NoError(t, NewHubNotifier(hub).Notify(context.Background(), ev))

	// Other tournaments' events never reach this room.
	other := NewEvent(EventMatchConfirmed, nil)
	other.TournamentID = 8
	require.NoError(t, NewHubNotifier(hub).Notify(context.Background(), other))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    EventType `json:"type"`
		RoomID  string    `json:"room_id"`
		Payload Event     `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, EventMatchConfirmed, msg.Type)
	assert.Equal(t, "tournament_7", msg.RoomID)
	assert.Equal(t, 42, msg.Payload.MatchID)
	assert.Equal(t, ev.ID, msg.Payload.ID)
}

func TestJoinFailsAfterHubStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(slog.Default())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	joined := make(chan bool, 1)
	go func() { joined <- hub.Join(&Client{Hub: hub, Send: make(chan []byte, 1), Room: RoomForTournament(1)}) }()
	select {
	case ok := <-joined:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Join blocked on a stopped hub")
	}
}
