package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	"transferhub/internal/adapters/cache/redis"
	"transferhub/internal/adapters/eventbroker/nats"
	"transferhub/internal/adapters/fetcher"
	"transferhub/internal/adapters/repository/postgres"
	"transferhub/internal/adapters/storage"
	"transferhub/internal/adapters/webhook"
	"transferhub/internal/config"
	"transferhub/internal/core/port"
	"transferhub/internal/core/service/download"
	"transferhub/internal/core/service/notification"
	"transferhub/internal/core/service/outbox"
	"transferhub/internal/core/service/session"
)

func main() {

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	// Initialize database
	db, err := initDB(cfg.Database)
	if err != nil {
		logger.Error("failed to init database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()
	logger.Info("db connection established")

	objectStorage, err := storage.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to init object storage", "error", err, "backend", cfg.Storage.Backend)
		os.Exit(1)
	}
	logger.Info("object storage initialized", "backend", cfg.Storage.Backend, "bucket", objectStorage.Bucket())

	var locker port.Locker
	if cfg.Redis.Addr != "" {
		cache, err := redis.NewCache(cfg.Redis, cfg.Upload.IdempotencyCacheTTL, logger)
		if err != nil {
			logger.Error("failed to init redis", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
		locker = cache
	}

	publisher, err := nats.NewNATSPublisher(ctx, cfg.NATS, logger)
	if err != nil {
		logger.Error("failed to init NATS publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Initialize services
	unitOfWork := postgres.NewUnitOfWork(db)
	wakeUp := outbox.NewSignal()

	sessionService := session.NewSessionService(unitOfWork, objectStorage, nil, wakeUp, cfg.Upload, cfg.Outbox.MaxAttempts, logger)
	downloadService := download.NewDownloadService(unitOfWork, objectStorage, fetcher.NewHTTPFetcher(cfg.Webhook.UserAgent, logger), wakeUp, cfg.Download, cfg.Outbox.MaxAttempts, logger)
	dispatcher := outbox.NewDispatcher(unitOfWork, publisher, webhook.NewHTTPSender(cfg.Webhook, logger), locker, wakeUp, cfg.Outbox, logger)
	notificationService := notification.NewNotificationService(sessionService, logger)

	// Initialize NATS consumer
	natsConsumer, err := nats.NewNATSConsumer(cfg.NATS, logger)
	if err != nil {
		logger.Error("failed to create NATS consumer", "error", err)
		os.Exit(1)
	}
	logger.Info("NATS consumer initialized")

	if err := natsConsumer.Subscribe(ctx, notificationService); err != nil {
		logger.Error("failed to subscribe to NATS", "error", err)
		os.Exit(1)
	}
	logger.Info("NATS subscription active")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx, cfg.Outbox.PollEvery)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		initDownloadTask(ctx, downloadService, cfg.Download.PollEvery, logger)
	}()

	// Wait for termination signal
	<-ctx.Done()
	logger.Info("gracefully shutting down worker")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		if err := natsConsumer.Close(); err != nil {
			logger.Error("failed to close NATS consumer during shutdown", "error", err)
		}
		close(done)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Info("shutdown timeout exceeded")
		}
	}

	logger.Info("worker shutdown complete")
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

// initDownloadTask runs the due download attempts on every tick until ctx is done
func initDownloadTask(ctx context.Context, service port.DownloadService, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	logger.Info("download task initialized", "interval", every)

	for {
		select {
		case <-ticker.C:
			processed, err := service.ProcessDue(ctx, time.Now())
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("download run failed", "error", err)
			} else if processed > 0 {
				logger.Info("download run completed", "attempts", processed)
			}
		case <-ctx.Done():
			logger.Info("download task stopped")
			return
		}
	}
}
