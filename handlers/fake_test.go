package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/Dosada05/ranked-portal/middleware"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/repositories"
	"github.com/Dosada05/ranked-portal/services"
	"github.com/golang-jwt/jwt/v4"
)

// asUser stands in for the authenticator.
func asUser(userID int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID > 0 {
				claims := jwt.MapClaims{"user_id": float64(userID), "role": string(models.RolePlayer)}
				r = r.WithContext(middleware.WithClaims(r.Context(), claims))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type fakeMatchService struct {
	report  func(actorUserID, matchID int, input services.ReportResultInput) (*models.TournamentMatch, error)
	confirm func(actorUserID, matchID int) (*models.TournamentMatch, error)
	dispute func(actorUserID, matchID int, input services.DisputeResultInput) (*models.Dispute, error)
	get     func(matchID int) (*models.TournamentMatch, error)
}

func (f *fakeMatchService) GetMatch(_ context.Context, matchID int) (*models.TournamentMatch, error) {
	return f.get(matchID)
}

func (f *fakeMatchService) ReportResult(_ context.Context, actorUserID, matchID int, input services.ReportResultInput) (*models.TournamentMatch, error) {
	return f.report(actorUserID, matchID, input)
}

func (f *fakeMatchService) ConfirmResult(_ context.Context, actorUserID, matchID int) (*models.TournamentMatch, error) {
	return f.confirm(actorUserID, matchID)
}

func (f *fakeMatchService) DisputeResult(_ context.Context, actorUserID, matchID int, input services.DisputeResultInput) (*models.Dispute, error) {
	return f.dispute(actorUserID, matchID, input)
}

type fakeEvidenceService struct {
	gotBody        []byte
	gotContentType string
	gotFilename    string
	err            error
}

func (f *fakeEvidenceService) UploadEvidence(_ context.Context, _, matchID int, file io.Reader, _ int64, contentType, filename string) (*services.EvidenceUpload, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	f.gotBody, f.gotContentType, f.gotFilename = body, contentType, filename
	return &services.EvidenceUpload{Key: "evidence/matches/1/x.png", URL: "https://signed.example.test/x", ContentType: contentType}, nil
}

type fakeArbitrationService struct {
	resolve    func(moderatorID, disputeID int, input services.ResolveDisputeInput) (*services.DisputeResolutionResult, error)
	gotFilter  repositories.ListDisputesFilter
	listErr    error
	disputes   []*models.Dispute
	getDispute func(actorID, disputeID int) (*models.Dispute, error)
}

func (f *fakeArbitrationService) ResolveDispute(_ context.Context, moderatorID, disputeID int, input services.ResolveDisputeInput) (*services.DisputeResolutionResult, error) {
	return f.resolve(moderatorID, disputeID, input)
}

func (f *fakeArbitrationService) GetDispute(_ context.Context, actorID, disputeID int) (*models.Dispute, error) {
	return f.getDispute(actorID, disputeID)
}

func (f *fakeArbitrationService) ListDisputes(_ context.Context, _ int, filter repositories.ListDisputesFilter) ([]*models.Dispute, error) {
	f.gotFilter = filter
	return f.disputes, f.listErr
}

type fakeRatingService struct {
	services.RatingService
	gotViewer   int
	history     *services.RatingHistory
	historyErr  error
	gotLimit    int
	gotOffset   int
	leaderboard []*models.PlayerRating
}

func (f *fakeRatingService) GetRatingHistory(_ context.Context, viewerID, _ int) (*services.RatingHistory, error) {
	f.gotViewer = viewerID
	return f.history, f.historyErr
}

func (f *fakeRatingService) Leaderboard(_ context.Context, limit, offset int) ([]*models.PlayerRating, error) {
	f.gotLimit, f.gotOffset = limit, offset
	return f.leaderboard, nil
}

type fakeTournamentService struct {
	services.TournamentService
	tournaments map[int]*models.Tournament
	gotStatus   models.TournamentStatus
	startErr    error
}

func (f *fakeTournamentService) GetTournament(_ context.Context, id int) (*models.Tournament, error) {
	t, ok := f.tournaments[id]
	if !ok {
		return nil, services.ErrTournamentNotFound
	}
	return t, nil
}

func (f *fakeTournamentService) UpdateStatus(_ context.Context, _, id int, status models.TournamentStatus) (*models.Tournament, error) {
	f.gotStatus = status
	t, ok := f.tournaments[id]
	if !ok {
		return nil, services.ErrTournamentNotFound
	}
	t.Status = status
	return t, nil
}

func (f *fakeTournamentService) Register(_ context.Context, userID, id int) (*models.Participant, error) {
	if _, ok := f.tournaments[id]; !ok {
		return nil, services.ErrTournamentNotFound
	}
	return &models.Participant{ID: 10, TournamentID: id, UserID: userID}, nil
}

func (f *fakeTournamentService) StartTournament(_ context.Context, _, id int) (*services.BracketView, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &services.BracketView{Tournament: f.tournaments[id]}, nil
}

type fakeChallengeService struct {
	services.ChallengeService
	gotInput services.ReportChallengeInput
	err      error
}

func (f *fakeChallengeService) Report(_ context.Context, actorID, challengeID int, input services.ReportChallengeInput) (*models.Challenge, error) {
	f.gotInput = input
	if f.err != nil {
		return nil, f.err
	}
	return &models.Challenge{ID: challengeID, ChallengerID: actorID, Status: models.ChallengeStatusReported, ReportedWinnerID: &input.WinnerID}, nil
}

func (f *fakeChallengeService) Accept(_ context.Context, actorID, challengeID int) (*models.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Challenge{ID: challengeID, OpponentID: actorID, Status: models.ChallengeStatusAccepted}, nil
}
