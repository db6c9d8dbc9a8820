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

	"github.com/Dosada05/tournament-ladder/brackets"
	"github.com/Dosada05/tournament-ladder/config"
	"github.com/Dosada05/tournament-ladder/db"
	"github.com/Dosada05/tournament-ladder/handlers"
	"github.com/Dosada05/tournament-ladder/models"
	"github.com/Dosada05/tournament-ladder/repositories"
	api "github.com/Dosada05/tournament-ladder/routes"
	"github.com/Dosada05/tournament-ladder/services"
	"github.com/Dosada05/tournament-ladder/storage"
	"github.com/go-chi/chi/v5"
)

// @title           Tournament Ladder API
// @version         1.0
// @description     Round-based tournament brackets: registration, pairing, results and standings.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

type persistence struct {
	txRunner        repositories.TxRunner
	userRepo        repositories.UserRepository
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	matchRepo       repositories.MatchRepository
	pinger          handlers.Pinger
	close           func() error
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.Int("round_limit", cfg.RoundLimit),
		slog.Int("final_field_size", cfg.FinalFieldSize))

	store, err := openPersistence(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		} else {
			logger.Info("storage closed")
		}
	}()

	archive := openResultsArchive(cfg, logger)

	locker := services.NewTournamentLocker()
	policy := brackets.RoundPolicy{MaxRounds: cfg.RoundLimit, FinalFieldSize: cfg.FinalFieldSize}

	tournamentService := services.NewTournamentService(
		store.txRunner,
		store.tournamentRepo,
		store.participantRepo,
		store.matchRepo,
		store.userRepo,
		locker,
		archive,
		logger,
	)
	matchService := services.NewMatchService(
		store.txRunner,
		store.tournamentRepo,
		store.participantRepo,
		store.matchRepo,
		locker,
		archive,
		policy,
		logger,
	)
	logger.Info("services initialized")

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Match:      handlers.NewMatchHandler(matchService),
		Health:     handlers.NewHealthHandler(store.pinger),
	}, []byte(cfg.JWTSecretKey), cfg.CORSAllowedOrigins)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}

func openPersistence(cfg *config.Config, logger *slog.Logger) (*persistence, error) {
	if cfg.StorageDriver == config.DriverMemory {
		mem := repositories.NewMemoryStore()
		for i, nickname := range cfg.SeedUsers {
			user := &models.User{ID: i + 1, Nickname: nickname}
			if err := mem.Users().Create(context.Background(), user); err != nil {
				return nil, fmt.Errorf("seed user %q: %w", nickname, err)
			}
		}
		logger.Warn("using in-memory storage, data is lost on restart", slog.Int("seed_users", len(cfg.SeedUsers)))
		return &persistence{
			txRunner:        mem,
			userRepo:        mem.Users(),
			tournamentRepo:  mem.Tournaments(),
			participantRepo: mem.Participants(),
			matchRepo:       mem.Matches(),
			close:           func() error { return nil },
		}, nil
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	return postgresPersistence(dbConn), nil
}

func postgresPersistence(dbConn *sql.DB) *persistence {
	return &persistence{
		txRunner:        repositories.NewPostgresTxRunner(dbConn),
		userRepo:        repositories.NewPostgresUserRepository(dbConn),
		tournamentRepo:  repositories.NewPostgresTournamentRepository(dbConn),
		participantRepo: repositories.NewPostgresParticipantRepository(dbConn),
		matchRepo:       repositories.NewPostgresMatchRepository(dbConn),
		pinger:          dbConn,
		close:           dbConn.Close,
	}
}

// openResultsArchive returns nil when R2 is not configured; results are then only kept in the database.
func openResultsArchive(cfg *config.Config, logger *slog.Logger) *storage.ResultsArchive {
	r2cfg := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	if !r2cfg.Complete() {
		logger.Info("results archive disabled: R2 is not configured")
		return nil
	}

	uploader, err := storage.NewCloudflareR2Uploader(context.Background(), r2cfg)
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader, results archive disabled", slog.Any("error", err))
		return nil
	}
	logger.Info("Cloudflare R2 uploader initialized")
	return storage.NewResultsArchive(uploader)
}
