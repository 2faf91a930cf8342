package brackets

import (
	"context"
	"testing"

	"github.com/Dosada05/ranked-portal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participants(n int) []*models.Participant {
	out := make([]*models.Participant, n)
	for i := range out {
		out[i] = &models.Participant{ID: 100 + i, TournamentID: 1}
	}
	return out
}

func TestRoundsFor(t *testing.T) {
	for n, want := range map[int]int{1: 0, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 16: 4, 17: 5} {
		assert.Equal(t, want, RoundsFor(n), "n=%d", n)
	}
}

func TestGenerateBracketShape(t *testing.T) {
	gen := NewSingleEliminationGenerator()
	assert.Equal(t, "single_elimination", gen.Name())
	tournament := &models.Tournament{ID: 1, AllowByes: true}

	for _, n := range []int{2, 3, 4, 5, 6, 7, 8, 11, 16} {
		matches, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{Tournament: tournament, Participants: participants(n)})
		require.NoError(t, err, "n=%d", n)

		rounds := RoundsFor(n)
		size := 1 << rounds
		assert.Len(t, matches, size-1, "n=%d", n)

		byUID := make(map[string]*BracketMatch, len(matches))
		for _, m := range matches {
			byUID[m.UID] = m
		}

		seen := make(map[int]bool)
		byes := 0
		finals := 0
		for _, m := range matches {
			if m.Round == 1 {
				for _, p := range []*int{m.Participant1ID, m.Participant2ID} {
					if p != nil {
						assert.False(t, seen[*p], "participant %d placed twice", *p)
						seen[*p] = true
					}
				}
				if m.IsBye {
					byes++
					assert.Equal(t, models.SlotPlayer2, m.ByeSlot)
					assert.Nil(t, m.Participant2ID)
				}
			} else {
				assert.Nil(t, m.Participant1ID)
				assert.Nil(t, m.Participant2ID)
			}

			if m.NextMatchUID == nil {
				finals++
				assert.Equal(t, rounds, m.Round)
				continue
			}
			next, ok := byUID[*m.NextMatchUID]
			require.True(t, ok)
			assert.Equal(t, m.Round+1, next.Round)
			if m.OrderInRound%2 == 1 {
				assert.Equal(t, models.SlotPlayer1, m.WinnerToSlot)
				assert.Equal(t, m.UID, *next.SourceMatch1UID)
			} else {
				assert.Equal(t, models.SlotPlayer2, m.WinnerToSlot)
				assert.Equal(t, m.UID, *next.SourceMatch2UID)
			}
		}
		assert.Len(t, seen, n)
		assert.Equal(t, size-n, byes)
		assert.Equal(t, 1, finals)
	}
}

func TestGenerateBracketErrors(t *testing.T) {
	gen := NewSingleEliminationGenerator()

	_, err := gen.GenerateBracket(context.Background(), GenerateBracketParams{Participants: participants(1)})
	assert.ErrorIs(t, err, ErrNotEnoughParticipants)

	_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{
		Tournament:   &models.Tournament{AllowByes: false},
		Participants: participants(6),
	})
	assert.ErrorIs(t, err, ErrByesNotAllowed)

	_, err = gen.GenerateBracket(context.Background(), GenerateBracketParams{
		Tournament:   &models.Tournament{AllowByes: false},
		Participants: participants(8),
	})
	assert.NoError(t, err)
}
