package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/ranked-portal/brackets"
	"github.com/Dosada05/ranked-portal/ledger"
	"github.com/Dosada05/ranked-portal/models"
	"github.com/Dosada05/ranked-portal/repositories"
	"golang.org/x/sync/errgroup"
)

type BracketRound struct {
	Round   int                       `json:"round"`
	Matches []*models.TournamentMatch `json:"matches"`
}

// BracketView is the tournament with its matches grouped by round.
type BracketView struct {
	Tournament   *models.Tournament         `json:"tournament"`
	Rounds       []BracketRound             `json:"rounds"`
	Participants map[int]ParticipantProfile `json:"participants"`
}

type BracketService interface {
	// GenerateAndSaveBracket runs inside the caller's transaction.
	GenerateAndSaveBracket(ctx context.Context, uow *UnitOfWork, tournament *models.Tournament, participants []*models.Participant) ([]*models.TournamentMatch, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
}

type bracketService struct {
	generator       brackets.BracketGenerator
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	finalizer       *Finalizer
	directory       PlayerDirectory
	logger          *slog.Logger
	now             func() time.Time
}

func NewBracketService(
	generator brackets.BracketGenerator,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	matchRepo repositories.MatchRepository,
	finalizer *Finalizer,
	directory PlayerDirectory,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		generator:       generator,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		matchRepo:       matchRepo,
		finalizer:       finalizer,
		directory:       directory,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *bracketService) GenerateAndSaveBracket(ctx context.Context, uow *UnitOfWork, tournament *models.Tournament, participants []*models.Participant) ([]*models.TournamentMatch, error) {
	s.logger.InfoContext(ctx, "starting bracket generation",
		slog.Int("tournament_id", tournament.ID),
		slog.String("generator", s.generator.Name()),
		slog.Int("participants", len(participants)),
	)

	generated, err := s.generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament:   tournament,
		Participants: participants,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate bracket structure for tournament %d: %w", tournament.ID, err)
	}
	if len(generated) == 0 {
		return nil, fmt.Errorf("bracket generation resulted in no matches for %d participants", len(participants))
	}

	// Matches are created from the final backwards so every next_match_id
	// already exists when its feeders are inserted.
	byUID := make(map[string]*models.TournamentMatch, len(generated))
	rounds := 0
	for i := len(generated) - 1; i >= 0; i-- {
		bm := generated[i]
		if bm.Round > rounds {
			rounds = bm.Round
		}
		m := &models.TournamentMatch{
			TournamentID: tournament.ID,
			Round:        bm.Round,
			MatchNumber:  bm.OrderInRound,
			Player1ID:    bm.Participant1ID,
			Player2ID:    bm.Participant2ID,
			Status:       models.MatchStatusPending,
		}
		if bm.IsBye {
			slot := bm.ByeSlot
			m.Status = models.MatchStatusBye
			m.ByeSlot = &slot
		}
		if bm.NextMatchUID != nil {
			next, ok := byUID[*bm.NextMatchUID]
			if !ok {
				return nil, fmt.Errorf("bracket node %s references unknown next node %s", bm.UID, *bm.NextMatchUID)
			}
			nextID, slot := next.ID, bm.WinnerToSlot
			m.NextMatchID = &nextID
			m.WinnerToSlot = &slot
		}
		if err := s.matchRepo.Create(ctx, uow.Exec, m); err != nil {
			return nil, fmt.Errorf("failed to create match %s: %w", bm.UID, err)
		}
		byUID[bm.UID] = m
	}

	if err := s.tournamentRepo.SetRoundCount(ctx, uow.Exec, tournament.ID, rounds); err != nil {
		return nil, err
	}
	tournament.RoundCount = rounds

	// Byes complete immediately and advance their participant.
	for _, bm := range generated {
		if !bm.IsBye {
			continue
		}
		m := byUID[bm.UID]
		if _, _, err := s.finalizer.Apply(ctx, uow, m, ledger.Bye{AllowByes: tournament.AllowByes, At: s.now().UTC()}); err != nil {
			return nil, fmt.Errorf("failed to complete bye %s: %w", bm.UID, err)
		}
	}

	matches, err := s.matchRepo.ListByTournament(ctx, uow.Exec, tournament.ID)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "bracket generated",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("rounds", rounds),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	var (
		tournament   *models.Tournament
		matches      []*models.TournamentMatch
		participants []*models.Participant
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gCtx, nil, tournamentID)
		if err != nil {
			return mapTournamentLookupError(err, tournamentID)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		list, err := s.matchRepo.ListByTournament(gCtx, nil, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to fetch matches for tournament %d: %w", tournamentID, err)
		}
		matches = list
		return nil
	})
	g.Go(func() error {
		list, err := s.participantRepo.ListByTournament(gCtx, nil, tournamentID, false)
		if err != nil {
			return fmt.Errorf("failed to fetch participants for tournament %d: %w", tournamentID, err)
		}
		participants = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	profiles, err := s.directory.Describe(ctx, participants)
	if err != nil {
		// Names are decoration; the bracket itself is still correct.
		s.logger.WarnContext(ctx, "failed to describe participants", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		profiles = map[int]ParticipantProfile{}
	}

	return &BracketView{
		Tournament:   tournament,
		Rounds:       groupByRound(matches),
		Participants: profiles,
	}, nil
}

// groupByRound expects matches ordered by round, then match number.
func groupByRound(matches []*models.TournamentMatch) []BracketRound {
	rounds := make([]BracketRound, 0)
	for _, m := range matches {
		if len(rounds) == 0 || rounds[len(rounds)-1].Round != m.Round {
			rounds = append(rounds, BracketRound{Round: m.Round})
		}
		last := &rounds[len(rounds)-1]
		last.Matches = append(last.Matches, m)
	}
	return rounds
}
