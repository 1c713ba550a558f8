package reaper

import (
	"log/slog"
	"transferhub/internal/config"
	"transferhub/internal/core/port"
)

const (
	lockName      = "session-reaper"
	expiredReason = "expired"
)

type reaperService struct {
	uow       port.UnitOfWork
	sessions  port.SessionService
	storage   port.ObjectStorage
	downloads port.DownloadService
	locker    port.Locker
	cfg       config.ReaperConfig
	logger    *slog.Logger
}

// NewReaperService creates the reaper. downloads and locker may be nil.
func NewReaperService(uow port.UnitOfWork, sessions port.SessionService, storage port.ObjectStorage, downloads port.DownloadService, locker port.Locker, cfg config.ReaperConfig, logger *slog.Logger) port.ReaperService {
	return &reaperService{
		uow:       uow,
		sessions:  sessions,
		storage:   storage,
		downloads: downloads,
		locker:    locker,
		cfg:       cfg,
		logger:    logger,
	}
}
