// main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/Marga-Ghale/ora-tasks-api/internal/api"
	"github.com/Marga-Ghale/ora-tasks-api/internal/auth"
	"github.com/Marga-Ghale/ora-tasks-api/internal/config"
	"github.com/Marga-Ghale/ora-tasks-api/internal/cron"
	"github.com/Marga-Ghale/ora-tasks-api/internal/db"
	"github.com/Marga-Ghale/ora-tasks-api/internal/email"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/notification"
	"github.com/Marga-Ghale/ora-tasks-api/internal/repository"
	"github.com/Marga-Ghale/ora-tasks-api/internal/seed"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
	"github.com/Marga-Ghale/ora-tasks-api/internal/socket"
	"github.com/Marga-Ghale/ora-tasks-api/internal/storage"
)

const (
	emailQueueSize    = 100
	emailWorkers      = 2
	shutdownTimeout   = 15 * time.Second
	tokenStoreCleanup = 10 * time.Minute
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	envErr := godotenv.Load()

	// ============================================
	// Load configuration
	// ============================================
	cfg := config.Load()
	logger.Init(cfg.LogLevel)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	if err := db.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	postgres, err := db.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer postgres.Close()

	repos := repository.NewRepositories(postgres.Pool)

	// ============================================
	// Seed Data (for development)
	// ============================================
	if cfg.SeedData && !cfg.IsProduction() {
		if err := seed.SeedData(ctx, repos, bcrypt.DefaultCost); err != nil {
			logger.Error().Err(err).Msg("failed to seed development data")
		}
	}

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	checks := map[string]api.HealthCheck{"database": postgres.Ping}

	var sessions auth.TokenStore
	redisDB, err := db.NewRedisDB(ctx, cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, refresh tokens kept in memory")
		sessions = auth.NewMemoryTokenStore(tokenStoreCleanup)
	} else {
		defer redisDB.Close()
		sessions = auth.NewRedisTokenStore(redisDB.Client)
		checks["redis"] = func(ctx context.Context) error { return redisDB.Client.Ping(ctx).Err() }
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Hour)

	files, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("failed to prepare upload directory")
	}

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	permissions := service.NewPermissionService(repos.ProjectRepo, repos.TaskRepo, repos.TeamRepo)
	hub := socket.NewHub(permissions)
	go hub.Run(ctx)
	broadcaster := socket.NewBroadcaster(hub)
	wsHandler := socket.NewHandler(hub, tokens, cfg.CORSOrigins)

	// ============================================
	// Initialize Notification Service
	// ============================================
	notifier := notification.NewService(repos.NotificationRepo, repos.UserRepo, repos.ProjectRepo, permissions)
	notifier.SetPusher(broadcaster)

	var mailQueue *email.Queue
	if cfg.SMTPHost != "" {
		mailQueue = email.NewQueue(email.NewService(&email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
			UseTLS:   cfg.SMTPUseTLS,
		}), emailQueueSize)
		mailQueue.Start(ctx, emailWorkers)
		notifier.SetMailer(mailQueue, cfg.AppURL)
		logger.Info().Str("host", cfg.SMTPHost).Msg("email notifications enabled")
	} else {
		logger.Info().Msg("email not configured (SMTP_HOST not set)")
	}

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		Tokens:      tokens,
		Sessions:    sessions,
		Files:       files,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Permission:  permissions,
	})

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	var scheduler *cron.Scheduler
	if cfg.CronEnabled {
		scheduler = cron.NewScheduler(repos.TaskRepo, repos.NotificationRepo, notifier, cfg.NotificationRetentionDays)
		if err := scheduler.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start scheduler")
		}
	}

	// ============================================
	// Start HTTP server
	// ============================================
	router := api.NewRouter(api.RouterDeps{
		Services:    services,
		CORSOrigins: cfg.CORSOrigins,
		WebSocket:   wsHandler.HandleWebSocket,
		Checks:      checks,
		WSClients:   hub.ConnectedClients,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if scheduler != nil {
		scheduler.Stop(shutdownCtx)
	}
	if mailQueue != nil {
		mailQueue.Wait()
	}
	logger.Info().Msg("server exited")
}
