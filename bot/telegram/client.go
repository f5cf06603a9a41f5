// Package telegram adapts the Telegram Bot API to bot.Client.
package telegram

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/jrsteele09/go-relay-server/internal/utils"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var _ bot.Client = (*Client)(nil)

const (
	errNotModified     = "message is not modified"
	errCantParse       = "can't parse entities"
	defaultPollTimeout = 30 * time.Second
)

// Client is a bot.Client over the Telegram long-polling API.
type Client struct {
	api         *tgbotapi.BotAPI
	pollTimeout time.Duration
	log         zerolog.Logger
	stopOnce    sync.Once
	closed      chan struct{}
}

type options struct {
	endpoint    string
	httpClient  tgbotapi.HTTPClient
	pollTimeout time.Duration
	log         zerolog.Logger
}

type Option func(*options)

// WithEndpoint overrides the API endpoint format, e.g. "http://host/bot%s/%s".
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

func WithHTTPClient(c tgbotapi.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

func WithPollTimeout(d time.Duration) Option {
	return func(o *options) {
		o.pollTimeout = d
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// Dial authenticates token against the API (getMe) and returns a ready client.
func Dial(ctx context.Context, token string, opts ...Option) (*Client, error) {
	o := options{
		endpoint:    tgbotapi.APIEndpoint,
		httpClient:  &http.Client{},
		pollTimeout: defaultPollTimeout,
		log:         log.Logger,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.httpClient)
	if err != nil {
		return nil, errors.Wrapf(err, "[telegram.Dial] bot %s", utils.Fingerprint(token))
	}

	c := &Client{
		api:         api,
		pollTimeout: o.pollTimeout,
		log:         o.log.With().Str("bot", api.Self.UserName).Logger(),
		closed:      make(chan struct{}),
	}
	c.log.Debug().Str("token", utils.Fingerprint(token)).Msg("bot authorised")
	return c, nil
}

// Dialer dials Telegram clients with a fixed set of options.
type Dialer struct {
	opts []Option
}

func NewDialer(opts ...Option) *Dialer {
	return &Dialer{opts: opts}
}

func (d *Dialer) Dial(ctx context.Context, token string) (bot.Client, error) {
	return Dial(ctx, token, d.opts...)
}

// Username is the bot's @handle as reported by getMe.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

func (c *Client) Send(ctx context.Context, msg bot.OutgoingMessage) (bot.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return bot.MessageRef{}, err
	}

	out := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	if msg.Format == bot.FormatMarkdown {
		out.ParseMode = tgbotapi.ModeMarkdown
	}
	if len(msg.Buttons) > 0 {
		out.ReplyMarkup = keyboard(msg.Buttons)
	}

	sent, err := c.api.Send(out)
	if err != nil && out.ParseMode != "" && strings.Contains(err.Error(), errCantParse) {
		c.log.Debug().Int64("chat_id", msg.ChatID).Msg("markdown rejected, resending as plain text")
		out.ParseMode = ""
		sent, err = c.api.Send(out)
	}
	if err != nil {
		return bot.MessageRef{}, errors.Wrap(err, "[telegram.Send]")
	}

	ref := bot.MessageRef{ChatID: msg.ChatID, MessageID: sent.MessageID}
	if sent.Chat != nil {
		ref.ChatID = sent.Chat.ID
	}
	return ref, nil
}

func (c *Client) Edit(ctx context.Context, ref bot.MessageRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text))
	if err != nil && strings.Contains(err.Error(), errNotModified) {
		return nil
	}
	return errors.Wrap(err, "[telegram.Edit]")
}

func (c *Client) Typing(ctx context.Context, chatID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	return errors.Wrap(err, "[telegram.Typing]")
}

func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.api.Request(tgbotapi.NewCallback(callbackID, text))
	return errors.Wrap(err, "[telegram.AnswerCallback]")
}

// Updates starts long polling. The returned channel closes when ctx ends or Close is called.
func (c *Client) Updates(ctx context.Context) <-chan bot.Update {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(c.pollTimeout / time.Second)
	in := c.api.GetUpdatesChan(cfg)

	out := make(chan bot.Update)
	go func() {
		defer close(out)
		defer c.stopPolling(in)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closed:
				return
			case u, ok := <-in:
				if !ok {
					return
				}
				converted, ok := convert(u)
				if !ok {
					continue
				}
				select {
				case out <- converted:
				case <-ctx.Done():
					return
				case <-c.closed:
					return
				}
			}
		}
	}()
	return out
}

// Close stops polling. It is safe to call more than once.
func (c *Client) Close() error {
	c.stopOnce.Do(func() {
		close(c.closed)
		c.api.StopReceivingUpdates()
	})
	return nil
}

// stopPolling shuts the poller down and drains what it still delivers so it can exit.
func (c *Client) stopPolling(in tgbotapi.UpdatesChannel) {
	_ = c.Close()
	go func() {
		for range in {
		}
	}()
}

func convert(u tgbotapi.Update) (bot.Update, bool) {
	switch {
	case u.CallbackQuery != nil:
		cq := u.CallbackQuery
		cb := &bot.Callback{ID: cq.ID, Data: cq.Data}
		if cq.From != nil {
			cb.FromID = cq.From.ID
		}
		if cq.Message != nil {
			cb.Message = bot.MessageRef{MessageID: cq.Message.MessageID}
			if cq.Message.Chat != nil {
				cb.Message.ChatID = cq.Message.Chat.ID
			}
		}
		return bot.Update{Callback: cb}, true
	case u.Message != nil:
		m := u.Message
		msg := &bot.Message{MessageRef: bot.MessageRef{MessageID: m.MessageID}, Text: m.Text}
		if m.Chat != nil {
			msg.ChatID = m.Chat.ID
		}
		if m.From != nil {
			msg.FromID = m.From.ID
			msg.FromUsername = m.From.UserName
		}
		return bot.Update{Message: msg}, true
	}
	return bot.Update{}, false
}

func keyboard(rows [][]bot.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		out = append(out, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}
