package approval

import (
	"context"

	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Listener is the admin bot's receive loop.
type Listener struct {
	client      bot.Client
	channel     *Channel
	adminChatID int64
	log         zerolog.Logger
}

func NewListener(client bot.Client, channel *Channel, adminChatID int64) *Listener {
	return &Listener{
		client:      client,
		channel:     channel,
		adminChatID: adminChatID,
		log:         log.Logger.With().Str("component", "approval").Logger(),
	}
}

// Run dispatches callbacks from the admin chat until ctx ends or the update stream closes.
// Callbacks from any other chat are dropped.
func (l *Listener) Run(ctx context.Context) error {
	l.log.Info().Int64("admin_chat_id", l.adminChatID).Msg("admin listener started")
	updates := l.client.Updates(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Callback == nil {
				continue
			}
			if l.adminChatID != 0 && u.Callback.Message.ChatID != l.adminChatID {
				l.log.Warn().Int64("chat_id", u.Callback.Message.ChatID).Msg("callback from outside the admin chat")
				continue
			}
			if err := l.channel.Handle(ctx, *u.Callback); err != nil {
				l.log.Error().Err(err).Msg("admin callback failed")
			}
		}
	}
}
