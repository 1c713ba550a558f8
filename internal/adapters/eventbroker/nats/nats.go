package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"transferhub/internal/config"
	"transferhub/internal/core/port"
	"transferhub/internal/core/retry"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Consumer reads storage notifications from a durable JetStream consumer
type Consumer struct {
	logger *slog.Logger
	conn   *nats.Conn
	js     jetstream.JetStream
	config config.NATSConfig
	nak    retry.Policy
	iter   jetstream.MessagesContext
	wg     sync.WaitGroup
}

func connect(url string, name string, logger *slog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to connect to JetStream: %w", err)
	}
	return conn, js, nil
}

// NewNATSConsumer creates a new consumer
func NewNATSConsumer(cfg config.NATSConfig, logger *slog.Logger) (*Consumer, error) {
	conn, js, err := connect(cfg.URL, cfg.ConsumerName, logger)
	if err != nil {
		return nil, err
	}

	nakDelay := cfg.NakDelay
	if nakDelay <= 0 {
		nakDelay = 100 * time.Millisecond
	}

	return &Consumer{
		conn:   conn,
		js:     js,
		config: cfg,
		nak:    retry.Policy{InitialInterval: nakDelay, Multiplier: 2, MaxInterval: 30 * time.Second},
		logger: logger,
	}, nil
}

// Subscribe binds the durable consumer and hands every notification to handler.
// A handler error naks the message with a growing delay until MaxDeliver is reached.
func (n *Consumer) Subscribe(ctx context.Context, handler port.MessageService) error {
	maxDeliver := n.config.MaxDeliver
	if maxDeliver <= 0 {
		maxDeliver = 5
	}
	ackWait := n.config.AckWait
	if ackWait <= 0 {
		ackWait = 30 * time.Second
	}

	consumerCfg := jetstream.ConsumerConfig{
		Durable:       n.config.ConsumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		FilterSubject: n.config.Subject,
		AckWait:       ackWait,
		MaxDeliver:    maxDeliver,
	}

	cons, err := n.js.CreateOrUpdateConsumer(ctx, n.config.StreamName, consumerCfg)
	if err != nil {
		return fmt.Errorf("failed to bind consumer %s: %w", n.config.ConsumerName, err)
	}

	iter, err := cons.Messages()
	if err != nil {
		return err
	}
	n.iter = iter

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.logger.Info("NATS subscription started", "stream", n.config.StreamName, "subject", n.config.Subject)
		for {
			msg, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					n.logger.Info("NATS subscription stopped")
					return
				}
				n.logger.Error("failed to receive message", "error", err)
				return
			}
			n.handle(ctx, msg, handler)
		}
	}()

	go func() {
		<-ctx.Done()
		iter.Stop()
	}()
	return nil
}

func (n *Consumer) handle(ctx context.Context, msg jetstream.Msg, handler port.MessageService) {
	handleErr := handler.HandleMessage(ctx, msg.Data())
	if handleErr == nil {
		if err := msg.Ack(); err != nil {
			n.logger.Error("failed to ack message", "error", err)
		}
		return
	}

	var delivered uint64 = 1
	if meta, err := msg.Metadata(); err == nil {
		delivered = meta.NumDelivered
	}
	delay := n.nak.Delay(int(delivered) - 1)
	n.logger.Warn("failed to handle message", "error", handleErr, "delivered", delivered, "redeliver_in", delay)

	if err := msg.NakWithDelay(delay); err != nil {
		n.logger.Error("failed to nak message", "error", err)
	}
}

// Close graceful shutdown
func (n *Consumer) Close() error {
	if n.iter != nil {
		n.iter.Stop()
	}

	n.wg.Wait()

	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
