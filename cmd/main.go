package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/ranked-portal/brackets"
	"github.com/Dosada05/ranked-portal/config"
	"github.com/Dosada05/ranked-portal/db"
	_ "github.com/Dosada05/ranked-portal/docs"
	"github.com/Dosada05/ranked-portal/handlers"
	"github.com/Dosada05/ranked-portal/metrics"
	"github.com/Dosada05/ranked-portal/middleware"
	"github.com/Dosada05/ranked-portal/notify"
	"github.com/Dosada05/ranked-portal/repositories"
	api "github.com/Dosada05/ranked-portal/routes"
	"github.com/Dosada05/ranked-portal/services"
	"github.com/Dosada05/ranked-portal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"
	"golang.org/x/time/rate"
)

const (
	dbConnectTimeout   = 5 * time.Second
	shutdownTimeout    = 15 * time.Second
	notificationBuffer = 1024
)

// @title Ranked Portal API
// @version 1.0
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	app := &cli.App{
		Name:  "ranked-portal",
		Usage: "match results, disputes, brackets and ratings",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "migrate", Usage: "apply pending migrations before serving", Value: true},
				},
				Action: func(c *cli.Context) error {
					return serve(c.Context, logger, c.Bool("migrate"))
				},
			},
			{
				Name:  "migrate",
				Usage: "apply pending database migrations",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					dbConn, err := db.Connect(c.Context, cfg.DatabaseURL, db.Options{PingTimeout: dbConnectTimeout}, logger)
					if err != nil {
						return err
					}
					defer dbConn.Close()
					return db.Migrate(c.Context, dbConn, logger)
				},
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					dbConn, err := db.Connect(c.Context, cfg.DatabaseURL, db.Options{PingTimeout: dbConnectTimeout}, logger)
					if err != nil {
						return err
					}
					defer dbConn.Close()
					return db.Rollback(c.Context, dbConn, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, logger *slog.Logger, migrate bool) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.Bool("storage_enabled", cfg.StorageEnabled()))

	// Подключение к базе данных
	dbConn, err := db.Connect(ctx, cfg.DatabaseURL, db.Options{PingTimeout: dbConnectTimeout}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	if migrate {
		if err := db.Migrate(ctx, dbConn, logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader = storage.Disabled{}
	if cfg.StorageEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("object storage is not configured, evidence upload is disabled")
	}

	// Инициализация WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := notify.NewHub(logger)
	go wsHub.Run(hubCtx)

	notifier := notify.NewAsync(notify.Multi{notify.NewHubNotifier(wsHub), notify.NewLogNotifier(logger)}, notificationBuffer, logger)
	defer notifier.Close()

	prom := metrics.NewPrometheus()

	router := chi.NewRouter()
	h := buildHandlers(dbConn, cfg, uploader, wsHub, notifier, prom, logger)
	api.SetupRoutes(router, h, api.Options{
		Auth:           middleware.NewAuthenticator(cfg.JWTSecretKey, logger),
		Limiter:        middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        prom.Handler(),
		Health: func(ctx context.Context) error {
			return db.Ping(ctx, dbConn, time.Second)
		},
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			// If shutdown fails, force close.
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
	return nil
}

func buildHandlers(
	dbConn *sql.DB,
	cfg *config.Config,
	uploader storage.FileUploader,
	wsHub *notify.Hub,
	notifier notify.Notifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
) api.Handlers {
	// Инициализация репозиториев
	tx := repositories.NewPostgresTransactor(dbConn, logger)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresParticipantRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	disputeRepo := repositories.NewPostgresDisputeRepository(dbConn)
	ratingRepo := repositories.NewPostgresRatingRepository(dbConn)
	challengeRepo := repositories.NewPostgresChallengeRepository(dbConn)

	// Инициализация сервисов
	authorizer := services.NewRoleAuthorizer(userRepo)
	finalizer := services.NewFinalizer(matchRepo, recorder, logger)
	advancement := services.NewBracketAdvancement(matchRepo, tournamentRepo, finalizer, recorder, logger)
	ratingService := services.NewRatingService(ratingRepo, tournamentRepo, participantRepo, userRepo, authorizer, recorder, logger)
	// Продвижение по сетке раньше рейтинга: оба в одной транзакции
	finalizer.Subscribe(advancement, ratingService)

	directory := services.NewPlayerDirectory(userRepo, uploader)
	bracketService := services.NewBracketService(brackets.NewSingleEliminationGenerator(), tournamentRepo, participantRepo, matchRepo, finalizer, directory, logger)
	tournamentService := services.NewTournamentService(tx, tournamentRepo, participantRepo, bracketService, authorizer, notifier, recorder, logger, cfg.AllowByes)
	matchService := services.NewMatchService(tx, matchRepo, tournamentRepo, participantRepo, disputeRepo, finalizer, notifier, recorder, logger)
	arbitrationService := services.NewArbitrationService(tx, disputeRepo, matchRepo, tournamentRepo, authorizer, finalizer, uploader, notifier, recorder, logger)
	challengeService := services.NewChallengeService(tx, challengeRepo, userRepo, ratingService, notifier, recorder, logger)
	evidenceService := services.NewEvidenceService(matchRepo, participantRepo, uploader, logger)
	logger.Info("Services initialized")

	return api.Handlers{
		Match:      handlers.NewMatchHandler(matchService, evidenceService, logger),
		Dispute:    handlers.NewDisputeHandler(arbitrationService),
		Tournament: handlers.NewTournamentHandler(tournamentService, bracketService),
		Rating:     handlers.NewRatingHandler(ratingService),
		Challenge:  handlers.NewChallengeHandler(challengeService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins, logger),
	}
}
