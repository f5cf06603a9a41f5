package approval

import (
	"context"

	"github.com/jrsteele09/go-relay-server/access"
	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Resolver stores an administrator's decision. *access.Registry satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, userID string, decision access.Status) (access.Status, error)
}

// Channel applies admin button presses to the registry and updates the prompt.
type Channel struct {
	resolver Resolver
	client   bot.Client
	log      zerolog.Logger
}

type ChannelOption func(*Channel)

func WithLogger(l zerolog.Logger) ChannelOption {
	return func(c *Channel) {
		c.log = l
	}
}

func NewChannel(resolver Resolver, client bot.Client, opts ...ChannelOption) *Channel {
	c := &Channel{
		resolver: resolver,
		client:   client,
		log:      log.Logger.With().Str("component", "approval").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle resolves the decision carried by cb. Callbacks that are not approval actions are acknowledged
// and otherwise ignored. Re-delivering the same callback is harmless.
func (c *Channel) Handle(ctx context.Context, cb bot.Callback) error {
	defer c.answer(ctx, cb.ID)

	action, ok := ParseAction(cb.Data)
	if !ok {
		c.log.Debug().Str("data", cb.Data).Msg("ignoring unknown callback")
		return nil
	}

	previous, err := c.resolver.Resolve(ctx, action.UserID, action.Decision())
	if err != nil {
		return errors.Wrapf(err, "[Channel.Handle] %s", action.Token())
	}
	c.log.Info().
		Str("user_id", action.UserID).
		Str("previous", string(previous)).
		Str("status", string(action.Decision())).
		Msg("admin decision applied")

	if err := c.client.Edit(ctx, cb.Message, action.Outcome()); err != nil {
		return errors.Wrap(err, "[Channel.Handle] edit prompt")
	}
	return nil
}

func (c *Channel) answer(ctx context.Context, callbackID string) {
	if callbackID == "" {
		return
	}
	if err := c.client.AnswerCallback(ctx, callbackID, ""); err != nil {
		c.log.Debug().Err(err).Msg("callback not acknowledged")
	}
}
