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
	"sync"
	"syscall"
	"time"
	"transferhub/internal/adapters/cache/redis"
	"transferhub/internal/adapters/eventbroker/nats"
	"transferhub/internal/adapters/fetcher"
	"transferhub/internal/adapters/handlers/http/chi"
	"transferhub/internal/adapters/handlers/http/chi/v1/download"
	"transferhub/internal/adapters/handlers/http/chi/v1/session"
	"transferhub/internal/adapters/repository/postgres"
	"transferhub/internal/adapters/storage"
	"transferhub/internal/adapters/webhook"
	"transferhub/internal/config"
	"transferhub/internal/core/port"
	downloadservice "transferhub/internal/core/service/download"
	"transferhub/internal/core/service/outbox"
	"transferhub/internal/core/service/reaper"
	sessionservice "transferhub/internal/core/service/session"
)

func main() {

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := initDB(cfg.Database)
	if err != nil {
		logger.Error("failed to init database", "error", err)
		os.Exit(1)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}(db)
	logger.Info("db connection established")

	//storage
	objectStorage, err := storage.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init object storage", "error", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}

	//cache, optional
	var (
		idempotencyCache port.IdempotencyCache
		locker           port.Locker
	)
	if cfg.Redis.Addr != "" {
		cache, err := redis.NewCache(cfg.Redis, cfg.Upload.IdempotencyCacheTTL, logger)
		if err != nil {
			logger.Error("failed to init redis", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
		idempotencyCache = cache
		locker = cache
		logger.Info("redis cache initialized")
	}

	//messaging
	publisher, err := nats.NewNATSPublisher(ctx, cfg.NATS, logger)
	if err != nil {
		logger.Error("failed to init NATS publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	unitOfWork := postgres.NewUnitOfWork(db)
	wakeUp := outbox.NewSignal()

	//services
	sessionService := sessionservice.NewSessionService(unitOfWork, objectStorage, idempotencyCache, wakeUp, cfg.Upload, cfg.Outbox.MaxAttempts, logger)
	downloadService := downloadservice.NewDownloadService(unitOfWork, objectStorage, fetcher.NewHTTPFetcher(cfg.Webhook.UserAgent, logger), wakeUp, cfg.Download, cfg.Outbox.MaxAttempts, logger)
	reaperService := reaper.NewReaperService(unitOfWork, sessionService, objectStorage, downloadService, locker, cfg.Reaper, logger)
	dispatcher := outbox.NewDispatcher(unitOfWork, publisher, webhook.NewHTTPSender(cfg.Webhook, logger), locker, wakeUp, cfg.Outbox, logger)

	//http
	sessionHandler := session.NewSessionHandlerV1(sessionService, logger)
	downloadHandler := download.NewDownloadHandlerV1(downloadService, logger)

	router := chi.NewRouter(logger, sessionHandler, downloadHandler, cfg.Env.Env)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting server", "host", cfg.Server.Host, "port", cfg.Server.Port)
		servErr := server.ListenAndServe()
		if servErr != nil && !errors.Is(servErr, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", servErr)
			stop()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, cfg.Outbox.PollEvery)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		initReaperTask(ctx, reaperService, cfg.Reaper.Every, logger)
	}()

	//wait for context cancel
	<-ctx.Done()
	logger.Info("gracefully shutting down app")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	} else {
		logger.Info("server gracefully shutdown complete")
	}

	wg.Wait()
	logger.Info("app shutdown complete")

}

func initDB(cfg config.DatabaseConfig) (*sql.DB, error) {

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenCons)
	db.SetMaxIdleConns(cfg.MaxIdleCons)
	db.SetConnMaxLifetime(cfg.ConMaxLifeTime)

	return db, nil
}

func initReaperTask(ctx context.Context, service port.ReaperService, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	logger.Info("reaper task initialized", "interval", every)

	for {
		select {
		case <-ticker.C:
			if _, err := service.Reap(ctx, time.Now()); err != nil {
				logger.Error("reaper run failed", "error", err)
			}
		case <-ctx.Done():
			logger.Info("reaper task stopped")
			return
		}
	}

}
