package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/duel-tournament/brackets"
	"github.com/Dosada05/duel-tournament/config"
	"github.com/Dosada05/duel-tournament/db"
	"github.com/Dosada05/duel-tournament/events"
	"github.com/Dosada05/duel-tournament/handlers"
	"github.com/Dosada05/duel-tournament/judges"
	"github.com/Dosada05/duel-tournament/metrics"
	"github.com/Dosada05/duel-tournament/repositories"
	api "github.com/Dosada05/duel-tournament/routes"
	"github.com/Dosada05/duel-tournament/services"
	"github.com/Dosada05/duel-tournament/storage"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Int("max_rematches", cfg.MaxRematches),
		slog.Duration("sweep_interval", cfg.SweepInterval),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Хранилище: Postgres, если задан DATABASE_URL, иначе память процесса
	var (
		duelRepo     repositories.DuelRepository
		questionRepo repositories.QuestionRepository
	)
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.Migrate(ctx, dbConn); err != nil {
			logger.Error("failed to apply schema", slog.Any("error", err))
			os.Exit(1)
		}
		duelRepo = repositories.NewPostgresDuelRepository(dbConn)
		questionRepo = repositories.NewPostgresQuestionRepository(dbConn)
		logger.Info("database connection established")
	} else {
		duelRepo = repositories.NewMemoryDuelRepository()
		questionRepo = repositories.NewMemoryQuestionRepository()
		logger.Warn("DATABASE_URL is empty, using in-memory storage")
	}

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	duelMetrics, err := metrics.New(registry)
	if err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub()
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	// Поток событий дуэлей: сервисы -> gochannel -> комнаты хаба
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewSlogLogger(logger))
	defer func() {
		if err := pubSub.Close(); err != nil {
			logger.Error("failed to close event stream", slog.Any("error", err))
		}
	}()
	forwarder := events.NewForwarder(pubSub, wsHub, logger)
	go func() {
		if err := forwarder.Run(ctx); err != nil {
			logger.Error("event forwarder stopped", slog.Any("error", err))
		}
	}()
	publisher := events.NewPublisher(pubSub)

	// Судья: ручные решения поверх HTTP-судьи с повторами
	var fallback judges.Evaluator
	if cfg.JudgeURL != "" {
		httpJudge := judges.NewHTTPJudge(judges.HTTPJudgeConfig{
			BaseURL: cfg.JudgeURL,
			APIKey:  cfg.JudgeAPIKey,
			Timeout: cfg.JudgeTimeout,
		})
		fallback = judges.NewRetryingJudge(httpJudge, logger, cfg.JudgeRetries, time.Second)
		logger.Info("HTTP judge configured", slog.String("url", cfg.JudgeURL))
	} else {
		logger.Warn("JUDGE_URL is empty, duels can be judged only by operator overrides")
	}
	overrideJudge := judges.NewOverrideJudge(fallback)

	// Инициализация архива сеток (Cloudflare R2)
	var archiver services.BracketArchiver
	if cfg.ArchiveEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		archiver = storage.NewBracketArchive(uploader)
		logger.Info("Cloudflare R2 bracket archive initialized")
	}

	// Инициализация сервисов
	duelService := services.NewDuelService(duelRepo, overrideJudge, publisher, duelMetrics, logger, services.DuelServiceConfig{
		MaxRematches: cfg.MaxRematches,
		Archiver:     archiver,
	})
	tournamentService := services.NewTournamentService(duelRepo, questionRepo, nil, duelService, publisher, logger, services.TournamentServiceConfig{})
	logger.Info("Services initialized")

	// Планировщик: истекшие дуэли закрываются, зависшие судятся повторно
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		logger.Info("Duel sweeper started", slog.Duration("interval", cfg.SweepInterval))

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				report, err := tournamentService.Sweep(ctx)
				if err != nil {
					logger.Error("Sweeper: run failed", slog.Any("error", err))
					continue
				}
				if report.Expired+report.Judged+report.Failed > 0 {
					logger.Info("Sweeper: run finished",
						slog.Int("expired", report.Expired),
						slog.Int("judged", report.Judged),
						slog.Int("failed", report.Failed),
					)
				}
			}
		}
	}()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Deps{
		TournamentHandler: handlers.NewTournamentHandler(tournamentService),
		DuelHandler:       handlers.NewDuelHandler(duelService, overrideJudge),
		WebSocketHandler:  handlers.NewWebSocketHandler(wsHub, cfg.AllowedOrigins),
		JWTSecret:         []byte(cfg.JWTSecretKey),
		AllowedOrigins:    cfg.AllowedOrigins,
		Metrics:           registry,
	})
	logger.Info("Routes configured")

	// Судья может отвечать долго, поэтому WriteTimeout больше JUDGE_TIMEOUT с повторами.
	writeTimeout := cfg.JudgeTimeout*time.Duration(cfg.JudgeRetries) + 10*time.Second

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: writeTimeout,
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
			logger.Error("server error", slog.Any("error", err))
			stop()
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
		} else {
			logger.Info("server shutdown complete")
		}
	}
	stop()
	logger.Info("application exited")
}
