package notification

import (
	"log/slog"
	"transferhub/internal/core/port"
)

type notificationService struct {
	sessions port.SessionService
	logger   *slog.Logger
}

// NewNotificationService creates the handler of storage "object created" notifications
func NewNotificationService(sessions port.SessionService, logger *slog.Logger) port.MessageService {
	return &notificationService{
		sessions: sessions,
		logger:   logger,
	}
}
