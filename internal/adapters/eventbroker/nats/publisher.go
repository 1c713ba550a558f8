package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"transferhub/internal/config"
	"transferhub/internal/core/domain"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// duplicateWindow is how long JetStream remembers a message id
const duplicateWindow = 10 * time.Minute

// Publisher sends outbox events to the events stream
type Publisher struct {
	logger *slog.Logger
	conn   *nats.Conn
	js     jetstream.JetStream
	config config.NATSConfig
}

// NewNATSPublisher connects and makes sure the events stream exists
func NewNATSPublisher(ctx context.Context, cfg config.NATSConfig, logger *slog.Logger) (*Publisher, error) {
	conn, js, err := connect(cfg.URL, cfg.ConsumerName+"-publisher", logger)
	if err != nil {
		return nil, err
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.EventsStream,
		Subjects:   []string{cfg.EventsSubject + ".>"},
		Duplicates: duplicateWindow,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.EventsStream, err)
	}

	return &Publisher{logger: logger, conn: conn, js: js, config: cfg}, nil
}

// Subject returns the subject an event type is published on
func (p *Publisher) Subject(eventType string) string {
	return p.config.EventsSubject + "." + eventType
}

// Publish sends payload once per msgID: JetStream drops a second publish with the same id inside the
// duplicate window
func (p *Publisher) Publish(ctx context.Context, eventType string, msgID string, payload []byte) error {
	ack, err := p.js.Publish(ctx, p.Subject(eventType), payload, jetstream.WithMsgID(msgID))
	if err != nil {
		return fmt.Errorf("%w: publish %s: %w", domain.ErrTransientProvider, eventType, err)
	}
	if ack.Duplicate {
		p.logger.Debug("event already published", "event_type", eventType, "msg_id", msgID)
	}
	return nil
}

// Close drains the connection
func (p *Publisher) Close() error {
	if p.conn != nil {
		return p.conn.Drain()
	}
	return nil
}
