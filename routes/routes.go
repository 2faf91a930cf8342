package routes

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Dosada05/ranked-portal/handlers"
	"github.com/Dosada05/ranked-portal/middleware"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Handlers groups everything SetupRoutes mounts.
type Handlers struct {
	Match      *handlers.MatchHandler
	Dispute    *handlers.DisputeHandler
	Tournament *handlers.TournamentHandler
	Rating     *handlers.RatingHandler
	Challenge  *handlers.ChallengeHandler
	WebSocket  *handlers.WebSocketHandler
}

type Options struct {
	Auth           *middleware.Authenticator
	Limiter        *middleware.IPRateLimiter
	AllowedOrigins []string
	Metrics        http.Handler
	// Health backs /healthz; nil means always healthy.
	Health func(ctx context.Context) error
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Health != nil {
			if err := opts.Health(r.Context()); err != nil {
				slog.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Токен передаётся в query (?token=), браузер не умеет ставить заголовки для WebSocket
	router.With(opts.Auth.OptionalAuthenticate).Get("/ws/tournaments/{tournamentID}", h.WebSocket.ServeWs)

	router.Route("/api", func(r chi.Router) {
		// Публичные маршруты
		r.Group(func(r chi.Router) {
			r.Use(opts.Auth.OptionalAuthenticate)
			r.Get("/tournaments/{tournamentID}", h.Tournament.GetTournament)
			r.Get("/tournaments/{tournamentID}/bracket", h.Tournament.GetBracket)
			r.Get("/matches/{matchID}", h.Match.GetMatch)
			r.Get("/players/leaderboard", h.Rating.Leaderboard)
			r.Get("/players/{userID}/rating-history", h.Rating.GetRatingHistory)
			r.Get("/challenges/{challengeID}", h.Challenge.GetChallenge)
		})

		// Защищенные маршруты
		r.Group(func(r chi.Router) {
			r.Use(opts.Auth.Authenticate)
			r.Get("/disputes", h.Dispute.ListDisputes)
			r.Get("/disputes/{disputeID}", h.Dispute.GetDispute)
			r.Get("/challenges", h.Challenge.ListMyChallenges)

			r.Group(func(r chi.Router) {
				if opts.Limiter != nil {
					r.Use(middleware.RateLimit(opts.Limiter))
				}

				r.Post("/tournaments", h.Tournament.CreateTournament)
				r.Post("/tournaments/{tournamentID}/register", h.Tournament.Register)
				r.Post("/tournaments/{tournamentID}/check-in", h.Tournament.CheckIn)
				r.Patch("/tournaments/{tournamentID}/status", h.Tournament.UpdateStatus)
				r.Post("/tournaments/{tournamentID}/start", h.Tournament.StartTournament)

				r.Post("/matches/{matchID}/report", h.Match.ReportResult)
				r.Post("/matches/{matchID}/confirm", h.Match.ConfirmResult)
				r.Post("/matches/{matchID}/dispute", h.Match.DisputeResult)
				r.Post("/matches/{matchID}/evidence", h.Match.UploadEvidence)

				r.Post("/disputes/{disputeID}/resolve", h.Dispute.ResolveDispute)

				r.Post("/challenges", h.Challenge.CreateChallenge)
				r.Post("/challenges/{challengeID}/accept", h.Challenge.AcceptChallenge)
				r.Post("/challenges/{challengeID}/decline", h.Challenge.DeclineChallenge)
				r.Post("/challenges/{challengeID}/report", h.Challenge.ReportChallenge)
				r.Post("/challenges/{challengeID}/confirm", h.Challenge.ConfirmChallenge)
			})
		})
	})
}
