package ledger

import (
	"testing"
	"time"

	"github.com/Dosada05/ranked-portal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func readyMatch() *models.TournamentMatch {
	return &models.TournamentMatch{
		ID:           10,
		TournamentID: 1,
		Round:        1,
		MatchNumber:  1,
		Player1ID:    ptr(101),
		Player2ID:    ptr(202),
		Status:       models.MatchStatusPending,
		NextMatchID:  ptr(30),
		WinnerToSlot: ptr(1),
		Version:      3,
	}
}

func reported(t *testing.T) *models.TournamentMatch {
	t.Helper()
	m, _, err := Apply(readyMatch(), Report{Reporter: 101, Winner: 101, Score1: 3, Score2: 1, At: now})
	require.NoError(t, err)
	return m
}

func TestApplyReport(t *testing.T) {
	tests := []struct {
		name    string
		match   func() *models.TournamentMatch
		event   Report
		wantErr error
	}{
		{
			name:  "winner reports own win",
			match: readyMatch,
			event: Report{Reporter: 101, Winner: 101, Score1: 3, Score2: 1},
		},
		{
			name:  "loser reports opponent win",
			match: readyMatch,
			event: Report{Reporter: 202, Winner: 101, Score1: 2, Score2: 0},
		},
		{
			name:    "tie rejected",
			match:   readyMatch,
			event:   Report{Reporter: 101, Winner: 101, Score1: 2, Score2: 2},
			wantErr: ErrInvalidScore,
		},
		{
			name:    "winner with lower score rejected",
			match:   readyMatch,
			event:   Report{Reporter: 202, Winner: 202, Score1: 3, Score2: 1},
			wantErr: ErrInvalidScore,
		},
		{
			name:    "negative score rejected",
			match:   readyMatch,
			event:   Report{Reporter: 101, Winner: 101, Score1: 1, Score2: -1},
			wantErr: ErrInvalidScore,
		},
		{
			name:    "winner outside match rejected",
			match:   readyMatch,
			event:   Report{Reporter: 101, Winner: 999, Score1: 1, Score2: 0},
			wantErr: ErrInvalidScore,
		},
		{
			name:    "outsider cannot report",
			match:   readyMatch,
			event:   Report{Reporter: 999, Winner: 101, Score1: 1, Score2: 0},
			wantErr: ErrNotAParticipant,
		},
		{
			name: "empty slot blocks reporting",
			match: func() *models.TournamentMatch {
				m := readyMatch()
				m.Player2ID = nil
				return m
			},
			event:   Report{Reporter: 101, Winner: 101, Score1: 1, Score2: 0},
			wantErr: ErrInvalidTransition,
		},
		{
			name: "completed match",
			match: func() *models.TournamentMatch {
				m := readyMatch()
				m.Status = models.MatchStatusCompleted
				m.WinnerID = ptr(101)
				return m
			},
			event:   Report{Reporter: 101, Winner: 101, Score1: 1, Score2: 0},
			wantErr: ErrAlreadyFinalized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.match()
			next, out, err := Apply(before, tt.event)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, next)
				return
			}
			require.NoError(t, err)
			assert.False(t, out.Noop)
			assert.Nil(t, out.Finalized)
			assert.Equal(t, models.MatchStatusReported, next.Status)
			assert.Equal(t, tt.event.Winner, *next.ReportedWinnerID)
			assert.Equal(t, tt.event.Reporter, *next.ReportedBy)
			assert.Nil(t, next.WinnerID)
			assert.Equal(t, models.MatchStatusPending, before.Status, "input must not be mutated")
		})
	}
}

func TestApplyReportIdempotent(t *testing.T) {
	m := reported(t)

	again, out, err := Apply(m, Report{Reporter: 101, Winner: 101, Score1: 3, Score2: 1, At: now.Add(time.Minute)})
	require.NoError(t, err)
	assert.True(t, out.Noop)
	if diff := cmp.Diff(m, again); diff != "" {
		t.Errorf("idempotent report changed the record (-want +got):\n%s", diff)
	}

	_, _, err = Apply(m, Report{Reporter: 101, Winner: 101, Score1: 3, Score2: 0})
	assert.ErrorIs(t, err, ErrAlreadyReported)

	_, _, err = Apply(m, Report{Reporter: 202, Winner: 202, Score1: 0, Score2: 3})
	assert.ErrorIs(t, err, ErrAlreadyReported)
}

func TestApplyConfirm(t *testing.T) {
	m := reported(t)

	_, _, err := Apply(m, Confirm{Confirmer: 101, At: now})
	assert.ErrorIs(t, err, ErrSelfConfirmation)

	_, _, err = Apply(m, Confirm{Confirmer: 555, At: now})
	assert.ErrorIs(t, err, ErrNotAParticipant)

	done, out, err := Apply(m, Confirm{Confirmer: 202, At: now})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, done.Status)
	assert.Equal(t, 101, *done.WinnerID)
	assert.Equal(t, 202, *done.ConfirmedBy)
	require.NotNil(t, out.Finalized)
	assert.Equal(t, models.MatchFinalized{TournamentID: 1, MatchID: 10, WinnerID: 101, LoserID: ptr(202)}, *out.Finalized)

	_, _, err = Apply(done, Confirm{Confirmer: 202, At: now})
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	_, _, err = Apply(done, Contest{Disputer: 202})
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
	_, _, err = Apply(done, Report{Reporter: 101, Winner: 101, Score1: 3, Score2: 1})
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestApplyConfirmOnPending(t *testing.T) {
	_, _, err := Apply(readyMatch(), Confirm{Confirmer: 202})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApplyContest(t *testing.T) {
	m := reported(t)

	_, _, err := Apply(m, Contest{Disputer: 101})
	assert.ErrorIs(t, err, ErrSelfConfirmation)

	disputed, out, err := Apply(m, Contest{Disputer: 202})
	require.NoError(t, err)
	assert.Nil(t, out.Finalized)
	assert.Equal(t, models.MatchStatusDisputed, disputed.Status)
	assert.True(t, disputed.IsDisputed)
	assert.Nil(t, disputed.WinnerID)

	_, _, err = Apply(disputed, Contest{Disputer: 202})
	assert.ErrorIs(t, err, ErrDisputeAlreadyOpen)

	_, _, err = Apply(disputed, Confirm{Confirmer: 202})
	assert.ErrorIs(t, err, ErrAlreadyFinalized)
}

func TestApplyArbitrate(t *testing.T) {
	disputed, _, err := Apply(reported(t), Contest{Disputer: 202})
	require.NoError(t, err)

	t.Run("overturn swaps reported scores", func(t *testing.T) {
		done, out, err := Apply(disputed, Arbitrate{Resolution: models.ResolutionPlayer2Wins, At: now})
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusCompleted, done.Status)
		assert.Equal(t, 202, *done.WinnerID)
		assert.Equal(t, 1, done.Player1Score)
		assert.Equal(t, 3, done.Player2Score)
		assert.False(t, done.IsDisputed)
		require.NotNil(t, out.Finalized)
		assert.Equal(t, 202, out.Finalized.WinnerID)
		assert.Equal(t, 101, *out.Finalized.LoserID)
	})

	t.Run("upheld keeps scores", func(t *testing.T) {
		done, _, err := Apply(disputed, Arbitrate{Resolution: models.ResolutionPlayer1Wins, At: now})
		require.NoError(t, err)
		assert.Equal(t, 101, *done.WinnerID)
		assert.Equal(t, 3, done.Player1Score)
	})

	t.Run("corrected scores must agree with ruling", func(t *testing.T) {
		_, _, err := Apply(disputed, Arbitrate{Resolution: models.ResolutionPlayer2Wins, Score1: ptr(4), Score2: ptr(2)})
		assert.ErrorIs(t, err, ErrInvalidScore)

		done, _, err := Apply(disputed, Arbitrate{Resolution: models.ResolutionPlayer2Wins, Score1: ptr(2), Score2: ptr(4)})
		require.NoError(t, err)
		assert.Equal(t, 4, done.Player2Score)
	})

	t.Run("annul resets to pending", func(t *testing.T) {
		reset, out, err := Apply(disputed, Arbitrate{Resolution: models.ResolutionAnnul, At: now})
		require.NoError(t, err)
		assert.Nil(t, out.Finalized)
		assert.Equal(t, models.MatchStatusPending, reset.Status)
		assert.Zero(t, reset.Player1Score)
		assert.Zero(t, reset.Player2Score)
		assert.Nil(t, reset.ReportedWinnerID)
		assert.Nil(t, reset.ReportedBy)
		assert.Nil(t, reset.WinnerID)
		assert.False(t, reset.IsDisputed)
		assert.Equal(t, 101, *reset.Player1ID)
		assert.Equal(t, 202, *reset.Player2ID)

		again, _, err := Apply(reset, Report{Reporter: 202, Winner: 202, Score1: 0, Score2: 2})
		require.NoError(t, err)
		assert.Equal(t, models.MatchStatusReported, again.Status)
	})

	t.Run("not disputed", func(t *testing.T) {
		_, _, err := Apply(reported(t), Arbitrate{Resolution: models.ResolutionPlayer1Wins})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestApplyBye(t *testing.T) {
	m := readyMatch()
	m.Player2ID = nil
	m.ByeSlot = ptr(2)
	m.Status = models.MatchStatusBye

	_, _, err := Apply(m, Bye{AllowByes: false})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	done, out, err := Apply(m, Bye{AllowByes: true, At: now})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusCompleted, done.Status)
	assert.Equal(t, 101, *done.WinnerID)
	require.NotNil(t, out.Finalized)
	assert.True(t, out.Finalized.Bye)
	assert.Nil(t, out.Finalized.LoserID)

	_, _, err = Apply(readyMatch(), Bye{AllowByes: true})
	assert.ErrorIs(t, err, ErrInvalidTransition, "two populated slots cannot be a bye")
}

func TestApplyUnknownStatus(t *testing.T) {
	m := readyMatch()
	m.Status = models.MatchStatus("finished")
	_, _, err := Apply(m, Confirm{Confirmer: 202})
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestWinnerInvariant(t *testing.T) {
	// winner is set iff completed, and always one of the slots.
	disputed, _, err := Apply(reported(t), Contest{Disputer: 202})
	require.NoError(t, err)
	done, _, err := Apply(disputed, Arbitrate{Resolution: models.ResolutionPlayer1Wins})
	require.NoError(t, err)
	confirmed, _, err := Apply(reported(t), Confirm{Confirmer: 202})
	require.NoError(t, err)

	for _, m := range []*models.TournamentMatch{readyMatch(), reported(t), disputed, done, confirmed} {
		if m.Status == models.MatchStatusCompleted {
			require.NotNil(t, m.WinnerID)
			assert.True(t, m.HasParticipant(*m.WinnerID))
		} else {
			assert.Nil(t, m.WinnerID)
		}
	}
}
