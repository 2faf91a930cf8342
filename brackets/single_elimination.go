// ranked-portal/brackets/single_elimination.go
package brackets

import (
	"context"
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/Dosada05/ranked-portal/models"
)

var (
	ErrNotEnoughParticipants = errors.New("not enough participants to generate a single elimination bracket (minimum 2)")
	ErrByesNotAllowed        = errors.New("participant count is not a power of two and the tournament does not allow byes")
)

// BracketMatch is one generated node of the tree before it is persisted.
// Links are expressed with UIDs; the service maps them to DB ids.
type BracketMatch struct {
	UID          string
	Round        int
	OrderInRound int

	Participant1ID *int
	Participant2ID *int

	SourceMatch1UID *string
	SourceMatch2UID *string

	NextMatchUID *string
	// WinnerToSlot is 1 for odd OrderInRound, 2 for even.
	WinnerToSlot int

	IsBye   bool
	ByeSlot int
}

type SingleEliminationGenerator struct {
}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) Name() string {
	return "single_elimination"
}

// RoundsFor returns the number of rounds needed for n participants.
func RoundsFor(n int) int {
	if n < 2 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func matchUID(round, order int) string {
	return fmt.Sprintf("R%dM%d", round, order)
}

// GenerateBracket builds the full tree. Participants are placed in the
// order given; byes go to the first participants so that two byes never
// meet. Every round-1 bye is a match with ByeSlot = 2.
func (g *SingleEliminationGenerator) GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error) {
	participants := params.Participants
	n := len(participants)
	if n < 2 {
		return nil, ErrNotEnoughParticipants
	}

	numRounds := RoundsFor(n)
	sizeOfFullBracket := 1 << uint(numRounds)
	numByes := sizeOfFullBracket - n

	allowByes := params.Tournament == nil || params.Tournament.AllowByes
	if numByes > 0 && !allowByes {
		return nil, fmt.Errorf("%w: %d participants", ErrByesNotAllowed, n)
	}

	allGeneratedMatches := make([]*BracketMatch, 0, sizeOfFullBracket-1)

	participantIdx := 0
	firstRound := sizeOfFullBracket / 2
	for order := 1; order <= firstRound; order++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bm := &BracketMatch{
			UID:          matchUID(1, order),
			Round:        1,
			OrderInRound: order,
		}
		p1 := participants[participantIdx].ID
		bm.Participant1ID = &p1
		participantIdx++

		if order <= numByes {
			bm.IsBye = true
			bm.ByeSlot = models.SlotPlayer2
		} else {
			p2 := participants[participantIdx].ID
			bm.Participant2ID = &p2
			participantIdx++
		}
		allGeneratedMatches = append(allGeneratedMatches, bm)
	}
	if participantIdx != n {
		return nil, fmt.Errorf("internal error: placed %d of %d participants", participantIdx, n)
	}

	for r := 2; r <= numRounds; r++ {
		matchesInThisRound := sizeOfFullBracket >> uint(r)
		for order := 1; order <= matchesInThisRound; order++ {
			src1 := matchUID(r-1, 2*order-1)
			src2 := matchUID(r-1, 2*order)
			allGeneratedMatches = append(allGeneratedMatches, &BracketMatch{
				UID:             matchUID(r, order),
				Round:           r,
				OrderInRound:    order,
				SourceMatch1UID: &src1,
				SourceMatch2UID: &src2,
			})
		}
	}

	for _, bm := range allGeneratedMatches {
		if bm.Round == numRounds {
			continue
		}
		next := matchUID(bm.Round+1, (bm.OrderInRound+1)/2)
		bm.NextMatchUID = &next
		if bm.OrderInRound%2 == 1 {
			bm.WinnerToSlot = models.SlotPlayer1
		} else {
			bm.WinnerToSlot = models.SlotPlayer2
		}
	}

	sort.Slice(allGeneratedMatches, func(i, j int) bool {
		if allGeneratedMatches[i].Round != allGeneratedMatches[j].Round {
			return allGeneratedMatches[i].Round < allGeneratedMatches[j].Round
		}
		return allGeneratedMatches[i].OrderInRound < allGeneratedMatches[j].OrderInRound
	})

	return allGeneratedMatches, nil
}
