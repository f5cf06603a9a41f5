// Package completionfake provides scripted completers for tests.
package completionfake

import (
	"context"
	"strings"
	"sync"

	"github.com/jrsteele09/go-relay-server/completion"
	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/pkg/errors"
)

var (
	_ completion.Completer = (*FakeCompleter)(nil)
	_ completion.Factory   = (*FakeFactory)(nil)
)

// FakeCompleter answers every prompt with Reply(prompt), or fails with Err.
type FakeCompleter struct {
	APIKey string

	lock    sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
	block   chan struct{}
}

func NewFakeCompleter(apiKey string) *FakeCompleter {
	return &FakeCompleter{
		APIKey: apiKey,
		reply: func(prompt string) (string, error) {
			return apiKey + ": " + prompt, nil
		},
	}
}

// SetReply replaces the reply function.
func (c *FakeCompleter) SetReply(fn func(prompt string) (string, error)) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.reply = fn
}

// SetErr makes every call fail with err.
func (c *FakeCompleter) SetErr(err error) {
	c.SetReply(func(string) (string, error) { return "", err })
}

// Block makes calls wait until the returned release func runs or ctx ends.
func (c *FakeCompleter) Block() (release func()) {
	ch := make(chan struct{})
	c.lock.Lock()
	c.block = ch
	c.lock.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (c *FakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.lock.Lock()
	c.prompts = append(c.prompts, prompt)
	reply := c.reply
	block := c.block
	c.lock.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", errors.Wrap(relayerrors.ErrCompletionFailed, ctx.Err().Error())
		}
	}
	return reply(prompt)
}

func (c *FakeCompleter) Prompts() []string {
	c.lock.Lock()
	defer c.lock.Unlock()
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}

// FakeFactory records the completers it builds. Keys listed in reject fail.
type FakeFactory struct {
	lock       sync.Mutex
	reject     map[string]bool
	completers []*FakeCompleter
}

func NewFakeFactory(reject ...string) *FakeFactory {
	f := &FakeFactory{reject: make(map[string]bool)}
	for _, key := range reject {
		f.reject[key] = true
	}
	return f
}

func (f *FakeFactory) New(apiKey string) (completion.Completer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, relayerrors.ErrInvalidCredentials
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.reject[apiKey] {
		return nil, errors.New("invalid api key")
	}
	c := NewFakeCompleter(apiKey)
	f.completers = append(f.completers, c)
	return c, nil
}

func (f *FakeFactory) Last() *FakeCompleter {
	f.lock.Lock()
	defer f.lock.Unlock()
	if len(f.completers) == 0 {
		return nil
	}
	return f.completers[len(f.completers)-1]
}
