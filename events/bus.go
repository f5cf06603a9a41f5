// Package events fans access status changes out to in-process subscribers.
package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/jrsteele09/go-relay-server/access"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// StatusTopic carries JSON encoded access.StatusChange messages.
const StatusTopic = "access.status"

var _ access.StatusPublisher = (*Bus)(nil)

// Bus is a non-persistent pub/sub. Changes published while nobody listens are dropped, and so are
// changes for a subscriber that stopped reading. Publish returns once every subscriber has the change,
// so each subscriber sees changes in publish order.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger
}

func NewBus(l zerolog.Logger) *Bus {
	l = l.With().Str("component", "events").Logger()
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: true,
		}, NewLoggerAdapter(l)),
		log: l,
	}
}

func (b *Bus) PublishStatus(ctx context.Context, change access.StatusChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return errors.Wrap(err, "[Bus.PublishStatus] encode")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("user_id", change.UserID)
	msg.SetContext(ctx)
	return errors.Wrap(b.pubsub.Publish(StatusTopic, msg), "[Bus.PublishStatus]")
}

// SubscribeStatus streams changes for userID until ctx ends. An empty userID receives every change.
func (b *Bus) SubscribeStatus(ctx context.Context, userID string) (<-chan access.StatusChange, error) {
	messages, err := b.pubsub.Subscribe(ctx, StatusTopic)
	if err != nil {
		return nil, errors.Wrap(err, "[Bus.SubscribeStatus]")
	}

	out := make(chan access.StatusChange, 8)
	go func() {
		defer close(out)
		for msg := range messages {
			if userID != "" && msg.Metadata.Get("user_id") != userID {
				msg.Ack()
				continue
			}
			var change access.StatusChange
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				b.log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("undecodable status change")
				msg.Ack()
				continue
			}
			select {
			case out <- change:
			default:
				b.log.Warn().Str("user_id", change.UserID).Msg("subscriber not keeping up, status change dropped")
			}
			msg.Ack()
		}
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}
