package services

import (
	"context"
	"testing"
	"time"

	"github.com/Dosada05/ranked-portal/brackets"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/stretchr/testify/require"
)

const (
	organizerID = 1
	moderatorID = 2
	outsiderID  = 3
)

type testEnv struct {
	store    *fakeStore
	recorder *fakeRecorder
	notifier *fakeNotifier
	uploader *fakeUploader

	finalizer   *Finalizer
	matches     MatchService
	arbitration ArbitrationService
	tournaments TournamentService
	brackets    BracketService
	ratings     RatingService
	challenges  ChallengeService
	evidence    EvidenceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	store.addUser(organizerID, models.RoleOrganizer, true)
	store.addUser(moderatorID, models.RoleModerator, true)
	store.addUser(outsiderID, models.RolePlayer, true)

	env := &testEnv{
		store:    store,
		recorder: newFakeRecorder(),
		notifier: &fakeNotifier{},
		uploader: newFakeUploader(),
	}
	logger := discardLogger()

	matchRepo := fakeMatchRepo{store}
	tournamentRepo := fakeTournamentRepo{store}
	participantRepo := fakeParticipantRepo{store}
	userRepo := fakeUserRepo{store}
	authorizer := NewRoleAuthorizer(userRepo)

	env.finalizer = NewFinalizer(matchRepo, env.recorder, logger)
	advancement := NewBracketAdvancement(matchRepo, tournamentRepo, env.finalizer, env.recorder, logger)
	env.ratings = NewRatingService(fakeRatingRepo{store}, tournamentRepo, participantRepo, userRepo, authorizer, env.recorder, logger)
	env.finalizer.Subscribe(advancement, env.ratings)

	directory := NewPlayerDirectory(userRepo, env.uploader)
	env.brackets = NewBracketService(brackets.NewSingleEliminationGenerator(), tournamentRepo, participantRepo, matchRepo, env.finalizer, directory, logger)
	env.tournaments = NewTournamentService(store, tournamentRepo, participantRepo, env.brackets, authorizer, env.notifier, env.recorder, logger, true)
	env.matches = NewMatchService(store, matchRepo, tournamentRepo, participantRepo, fakeDisputeRepo{store}, env.finalizer, env.notifier, env.recorder, logger)
	env.arbitration = NewArbitrationService(store, fakeDisputeRepo{store}, matchRepo, tournamentRepo, authorizer, env.finalizer, env.uploader, env.notifier, env.recorder, logger)
	env.challenges = NewChallengeService(store, fakeChallengeRepo{store}, userRepo, env.ratings, env.notifier, env.recorder, logger)
	env.evidence = NewEvidenceService(matchRepo, participantRepo, env.uploader, logger)
	return env
}

// bracketFixture is a started tournament; players maps user id to
// participant id.
type bracketFixture struct {
	tournamentID int
	players      map[int]int
}

// startTournament registers the given users and starts the bracket.
func (e *testEnv) startTournament(t *testing.T, ranked bool, userIDs ...int) bracketFixture {
	t.Helper()
	ctx := context.Background()
	for _, id := range userIDs {
		e.store.addUser(id, models.RolePlayer, true)
	}

	tour, err := e.tournaments.CreateTournament(ctx, organizerID, CreateTournamentInput{
		Name:            "cup " + time.Now().Format(time.RFC3339Nano),
		IsRanked:        &ranked,
		MaxParticipants: 16,
	})
	require.NoError(t, err)

	fx := bracketFixture{tournamentID: tour.ID, players: map[int]int{}}
	for _, id := range userIDs {
		p, err := e.tournaments.Register(ctx, id, tour.ID)
		require.NoError(t, err)
		fx.players[id] = p.ID
	}
	_, err = e.tournaments.StartTournament(ctx, organizerID, tour.ID)
	require.NoError(t, err)
	e.notifier.reset()
	return fx
}

// matchAt returns the match in the given round and position.
func (e *testEnv) matchAt(t *testing.T, tournamentID, round, number int) models.TournamentMatch {
	t.Helper()
	list, err := fakeMatchRepo{e.store}.ListByTournament(context.Background(), nil, tournamentID)
	require.NoError(t, err)
	for _, m := range list {
		if m.Round == round && m.MatchNumber == number {
			return *m
		}
	}
	t.Fatalf("no match at round %d number %d", round, number)
	return models.TournamentMatch{}
}

// report submits a result where winnerUser beats the opponent 2-0.
func (e *testEnv) report(t *testing.T, fx bracketFixture, matchID, reporterUser, winnerUser int) *models.TournamentMatch {
	t.Helper()
	m := e.store.match(matchID)
	winner := fx.players[winnerUser]
	input := ReportResultInput{WinnerParticipantID: winner, Player1Score: 2, Player2Score: 0}
	if m.SlotOf(winner) == models.SlotPlayer2 {
		input.Player1Score, input.Player2Score = 0, 2
	}
	got, err := e.matches.ReportResult(context.Background(), reporterUser, matchID, input)
	require.NoError(t, err)
	return got
}

func intPtr(v int) *int { return &v }
