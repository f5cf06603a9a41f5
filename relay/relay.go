// Package relay forwards a bot's inbound messages to a completer and sends the replies back.
package relay

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/jrsteele09/go-relay-server/completion"
	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/jrsteele09/go-relay-server/tracing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FallbackMessage is sent once for every exchange whose completion fails.
const FallbackMessage = "⚠️ AI Error: Check your API Key."

const defaultCompletionTimeout = 60 * time.Second

// Relay is stateless between messages: every exchange is a single turn.
type Relay struct {
	client            bot.Client
	completer         completion.Completer
	completionTimeout time.Duration
	log               zerolog.Logger
}

type Option func(*Relay)

func WithCompletionTimeout(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.completionTimeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Relay) {
		r.log = l
	}
}

func New(client bot.Client, completer completion.Completer, opts ...Option) *Relay {
	r := &Relay{
		client:            client,
		completer:         completer,
		completionTimeout: defaultCompletionTimeout,
		log:               log.Logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run handles updates one at a time, in arrival order, until the stream closes or ctx ends.
func (r *Relay) Run(ctx context.Context) {
	updates := r.client.Updates(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if u.Message != nil {
				r.Handle(ctx, u.Message.ChatID, u.Message.Text)
			}
		}
	}
}

// Handle runs one exchange. Failures never escape: the chat gets the fallback message instead.
func (r *Relay) Handle(ctx context.Context, chatID int64, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	ctx, span := tracing.StartSpan(ctx, "relay.exchange")
	span.WithAttributes(map[string]string{"chat_id": strconv.FormatInt(chatID, 10)})
	err := r.exchange(ctx, chatID, text)
	tracing.EndSpan(span, err)
}

func (r *Relay) exchange(ctx context.Context, chatID int64, text string) error {
	l := r.log.With().Int64("chat_id", chatID).Logger()

	if err := r.client.Typing(ctx, chatID); err != nil {
		l.Debug().Err(err).Msg("typing indicator failed")
	}

	cctx, cancel := context.WithTimeout(ctx, r.completionTimeout)
	reply, err := r.completer.Complete(cctx, text)
	cancel()

	if ctx.Err() != nil {
		// Stopped or replaced mid-exchange.
		l.Debug().Msg("session ended, reply discarded")
		return ctx.Err()
	}

	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.Wrap(relayerrors.ErrCompletionFailed, "empty reply")
	}
	if err != nil {
		l.Warn().Err(err).Msg("completion failed")
		if _, sendErr := r.client.Send(ctx, bot.OutgoingMessage{ChatID: chatID, Text: FallbackMessage}); sendErr != nil {
			l.Error().Err(sendErr).Msg("fallback message not delivered")
		}
		return err
	}

	if _, err := r.client.Send(ctx, bot.OutgoingMessage{ChatID: chatID, Text: reply, Format: bot.FormatMarkdown}); err != nil {
		l.Error().Err(err).Msg("reply not delivered")
		return errors.Wrap(err, "[relay] send reply")
	}
	return nil
}
