// Package botfake provides in-memory bot.Client and bot.Dialer implementations for tests.
package botfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/pkg/errors"
)

var (
	_ bot.Client = (*FakeClient)(nil)
	_ bot.Dialer = (*FakeDialer)(nil)
)

// Edit is one recorded edit call.
type Edit struct {
	Ref  bot.MessageRef
	Text string
}

// FakeClient records everything sent through it. Tests push inbound traffic with Push.
type FakeClient struct {
	Token string

	lock       sync.Mutex
	sent       []bot.OutgoingMessage
	edits      []Edit
	typing     []int64
	answered   []string
	sendErr    error
	editErr    error
	typingErr  error
	nextID     int
	closed     bool
	closeCalls int

	updates   chan bot.Update
	done      chan struct{}
	closeOnce sync.Once
	sentCh    chan bot.OutgoingMessage
}

func NewFakeClient(token string) *FakeClient {
	return &FakeClient{
		Token:   token,
		updates: make(chan bot.Update, 16),
		done:    make(chan struct{}),
		sentCh:  make(chan bot.OutgoingMessage, 64),
	}
}

// Push queues an inbound update.
func (c *FakeClient) Push(u bot.Update) {
	c.updates <- u
}

// PushText queues an inbound text message from chatID.
func (c *FakeClient) PushText(chatID int64, text string) {
	c.Push(bot.Update{Message: &bot.Message{MessageRef: bot.MessageRef{ChatID: chatID}, FromID: chatID, Text: text}})
}

func (c *FakeClient) SetSendErr(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.sendErr = err
}

func (c *FakeClient) SetEditErr(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.editErr = err
}

func (c *FakeClient) SetTypingErr(err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.typingErr = err
}

func (c *FakeClient) Send(_ context.Context, msg bot.OutgoingMessage) (bot.MessageRef, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.sendErr != nil {
		return bot.MessageRef{}, c.sendErr
	}
	c.nextID++
	c.sent = append(c.sent, msg)
	select {
	case c.sentCh <- msg:
	default:
	}
	return bot.MessageRef{ChatID: msg.ChatID, MessageID: c.nextID}, nil
}

func (c *FakeClient) Edit(_ context.Context, ref bot.MessageRef, text string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.editErr != nil {
		return c.editErr
	}
	c.edits = append(c.edits, Edit{Ref: ref, Text: text})
	return nil
}

func (c *FakeClient) Typing(_ context.Context, chatID int64) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.typing = append(c.typing, chatID)
	return c.typingErr
}

func (c *FakeClient) AnswerCallback(_ context.Context, callbackID, _ string) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.answered = append(c.answered, callbackID)
	return nil
}

// Updates forwards pushed updates until ctx ends or the client is closed.
func (c *FakeClient) Updates(ctx context.Context) <-chan bot.Update {
	out := make(chan bot.Update)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.done:
				return
			case u := <-c.updates:
				select {
				case out <- u:
				case <-ctx.Done():
					return
				case <-c.done:
					return
				}
			}
		}
	}()
	return out
}

func (c *FakeClient) Close() error {
	c.lock.Lock()
	c.closed = true
	c.closeCalls++
	c.lock.Unlock()
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// SentCh yields every successfully sent message in order.
func (c *FakeClient) SentCh() <-chan bot.OutgoingMessage {
	return c.sentCh
}

func (c *FakeClient) Sent() []bot.OutgoingMessage {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]bot.OutgoingMessage, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *FakeClient) Edits() []Edit {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]Edit, len(c.edits))
	copy(out, c.edits)
	return out
}

func (c *FakeClient) TypingCalls() []int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]int64, len(c.typing))
	copy(out, c.typing)
	return out
}

func (c *FakeClient) Answered() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]string, len(c.answered))
	copy(out, c.answered)
	return out
}

func (c *FakeClient) Closed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed
}

// FakeDialer hands out a new FakeClient per successful Dial. Tokens listed in Reject fail.
type FakeDialer struct {
	lock    sync.Mutex
	reject  map[string]bool
	clients []*FakeClient
}

func NewFakeDialer(reject ...string) *FakeDialer {
	d := &FakeDialer{reject: make(map[string]bool)}
	for _, token := range reject {
		d.reject[token] = true
	}
	return d
}

func (d *FakeDialer) Dial(ctx context.Context, token string) (bot.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.reject[token] {
		return nil, errors.New("Unauthorized")
	}
	c := NewFakeClient(token)
	d.clients = append(d.clients, c)
	return c, nil
}

// Clients returns every client dialled so far, oldest first.
func (d *FakeDialer) Clients() []*FakeClient {
	d.lock.Lock()
	defer d.lock.Unlock()
	out := make([]*FakeClient, len(d.clients))
	copy(out, d.clients)
	return out
}

// Last returns the most recently dialled client, or nil.
func (d *FakeDialer) Last() *FakeClient {
	d.lock.Lock()
	defer d.lock.Unlock()
	if len(d.clients) == 0 {
		return nil
	}
	return d.clients[len(d.clients)-1]
}
