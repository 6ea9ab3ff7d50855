package events

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// Dispatcher publishes typed payloads as JSON messages. Any Watermill
// publisher works behind it; the in-process bus from NewInProcessBus is the
// default.
type Dispatcher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

// NewDispatcher builds a Dispatcher over publisher.
func NewDispatcher(publisher message.Publisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{publisher: publisher, logger: logger}
}

// Publish marshals payload and publishes it on topic. Serialization errors
// are returned; a nil Dispatcher drops everything, so dispatch call sites
// need no nil checks.
func (d *Dispatcher) Publish(topic string, payload any) error {
	if d == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}
	msg := message.NewMessage(uuid.New().String(), body)
	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	d.logger.Debug("Published event",
		slog.String("topic", topic),
		slog.String("message_id", msg.UUID),
	)
	return nil
}

// Close closes the underlying publisher.
func (d *Dispatcher) Close() error {
	if d == nil {
		return nil
	}
	return d.publisher.Close()
}

// NewInProcessBus builds a buffered in-process Pub/Sub. The buffer keeps
// dispatch from blocking on slow or absent consumers.
func NewInProcessBus(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
}
