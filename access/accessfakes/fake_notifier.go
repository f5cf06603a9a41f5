package accessfakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-relay-server/access"
)

var (
	_ access.Notifier        = (*FakeNotifier)(nil)
	_ access.StatusPublisher = (*FakePublisher)(nil)
)

// FakeNotifier records every request and fails while Err is set.
type FakeNotifier struct {
	lock     sync.Mutex
	requests []access.Request
	err      error
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) NotifyAccessRequest(_ context.Context, req access.Request) error {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.requests = append(n.requests, req)
	return n.err
}

func (n *FakeNotifier) SetErr(err error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.err = err
}

func (n *FakeNotifier) Requests() []access.Request {
	n.lock.Lock()
	defer n.lock.Unlock()
	out := make([]access.Request, len(n.requests))
	copy(out, n.requests)
	return out
}

type FakePublisher struct {
	lock    sync.Mutex
	changes []access.StatusChange
	err     error
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

func (p *FakePublisher) PublishStatus(_ context.Context, change access.StatusChange) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.changes = append(p.changes, change)
	return p.err
}

func (p *FakePublisher) SetErr(err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.err = err
}

func (p *FakePublisher) Changes() []access.StatusChange {
	p.lock.Lock()
	defer p.lock.Unlock()
	out := make([]access.StatusChange, len(p.changes))
	copy(out, p.changes)
	return out
}
