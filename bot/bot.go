// Package bot describes the chat platform capabilities the relay needs. Platform SDKs live behind Client.
package bot

import (
	"context"
	"strings"
)

// Format selects how the platform renders an outgoing message.
type Format int

const (
	FormatPlain Format = iota
	FormatMarkdown
)

// MessageRef identifies a message that was sent, so it can be edited later.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Message is an inbound text message.
type Message struct {
	MessageRef
	FromID       int64
	FromUsername string
	Text         string
}

// Callback is an inline button press.
type Callback struct {
	ID      string
	Data    string
	FromID  int64
	Message MessageRef
}

// Update carries exactly one of Message or Callback.
type Update struct {
	Message  *Message
	Callback *Callback
}

type Button struct {
	Text string
	Data string
}

type OutgoingMessage struct {
	ChatID  int64
	Text    string
	Format  Format
	Buttons [][]Button
}

// Client is an authenticated connection to one bot.
type Client interface {
	// Send delivers a message. Markdown that the platform rejects is resent as plain text.
	Send(ctx context.Context, msg OutgoingMessage) (MessageRef, error)
	// Edit replaces the text of a sent message. Editing to identical text is not an error.
	Edit(ctx context.Context, ref MessageRef, text string) error
	Typing(ctx context.Context, chatID int64) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// Updates streams inbound updates until ctx ends or the client is closed. Call it once per client.
	Updates(ctx context.Context) <-chan Update
	Close() error
}

// Dialer opens a Client for a bot token. Dial fails when the platform rejects the token.
type Dialer interface {
	Dial(ctx context.Context, token string) (Client, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, token string) (Client, error)

func (f DialerFunc) Dial(ctx context.Context, token string) (Client, error) {
	return f(ctx, token)
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"`", "\\`",
	"[", "\\[",
)

// EscapeMarkdown escapes user supplied text for the legacy Markdown parse mode.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
