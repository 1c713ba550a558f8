package port

import "context"

// EventConsumer is an interface to define a storage notification consumer (kafka, nats, ...)
type EventConsumer interface {
	Subscribe(ctx context.Context, handler MessageService) error
	Close() error
}

// MessageService is an interface to define message handling.
// A nil error acks the message, any error asks the broker to redeliver it.
type MessageService interface {
	HandleMessage(ctx context.Context, data []byte) error
}
