package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"
)

const subscriberBuffer = 64

// Bus is an in-memory pub/sub of session events, one topic per session
type Bus struct {
	pubSub *gochannel.GoChannel
	logger zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	logger = logger.With().Str("component", "events").Logger()
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			// keeps each subscriber's events in publish order
			BlockPublishUntilSubscriberAck: true,
		},
		NewWatermillLogger(logger),
	)
	return &Bus{pubSub: pubSub, logger: logger}
}

func (b *Bus) Publish(e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(topic(e.SessionID), msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe streams the events of one session until ctx is done. Slow readers
// lose events rather than stall the session.
func (b *Bus) Subscribe(ctx context.Context, sessionID string) (<-chan Event, error) {
	messages, err := b.pubSub.Subscribe(ctx, topic(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range messages {
			var e Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				b.logger.Error().Err(err).Str("session", sessionID).Msg("Failed to decode event")
				msg.Ack()
				continue
			}
			select {
			case out <- e:
			default:
				b.logger.Warn().Str("session", sessionID).Str("type", string(e.Type)).Msg("Subscriber too slow, dropping event")
			}
			msg.Ack()
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
