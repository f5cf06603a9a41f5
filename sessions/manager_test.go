package sessions_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/jrsteele09/go-relay-server/bot/botfake"
	"github.com/jrsteele09/go-relay-server/completion/completionfake"
	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/jrsteele09/go-relay-server/internal/utils"
	"github.com/jrsteele09/go-relay-server/sessions"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	dialer    *botfake.FakeDialer
	factory   *completionfake.FakeFactory
	repo      *sessions.InMemoryRepo
	manager   *sessions.Manager
	cancelAll context.CancelFunc
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f := &fixture{
		dialer:    botfake.NewFakeDialer("bad-token"),
		factory:   completionfake.NewFakeFactory("bad-key"),
		repo:      sessions.NewInMemoryRepo(),
		cancelAll: cancel,
	}
	f.manager = sessions.NewManager(ctx, f.repo, f.dialer, f.factory, sessions.WithStopTimeout(time.Second))
	t.Cleanup(func() {
		f.manager.StopAll()
		cancel()
	})
	return f
}

func nextSent(t *testing.T, c *botfake.FakeClient) bot.OutgoingMessage {
	t.Helper()
	select {
	case m := <-c.SentCh():
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no reply")
	}
	return bot.OutgoingMessage{}
}

func TestStartRelaysMessages(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.manager.Start(context.Background(), "42", "tok-1", "key-1"))

	client := f.dialer.Last()
	require.Equal(t, "tok-1", client.Token)
	client.PushText(100, "hi")
	require.Equal(t, "key-1: hi", nextSent(t, client).Text)

	info, ok := f.manager.Get("42")
	require.True(t, ok)
	require.Equal(t, "42", info.OwnerID)
	require.Equal(t, utils.Fingerprint("tok-1"), info.TokenFingerprint)
	require.True(t, info.Running)
	require.NotEmpty(t, info.ID)
}

func TestStartReplacesPreviousSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Start(ctx, "42", "tok-1", "key-1"))
	first := f.dialer.Last()
	firstInfo, _ := f.manager.Get("42")

	require.NoError(t, f.manager.Start(ctx, "42", "tok-2", "key-2"))
	second := f.dialer.Last()
	require.NotSame(t, first, second)
	require.True(t, first.Closed())

	second.PushText(100, "hi")
	require.Equal(t, "key-2: hi", nextSent(t, second).Text)
	require.Empty(t, first.Sent())

	list := f.manager.List()
	require.Len(t, list, 1)
	require.NotEqual(t, firstInfo.ID, list[0].ID)
	require.Equal(t, utils.Fingerprint("tok-2"), list[0].TokenFingerprint)
}

func TestStartWithEmptyCredentialsLeavesPriorSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Start(ctx, "42", "tok-1", "key-1"))
	before, _ := f.manager.Get("42")

	for _, creds := range [][2]string{{"", "key-2"}, {"tok-2", ""}, {"  ", "key-2"}} {
		err := f.manager.Start(ctx, "42", creds[0], creds[1])
		require.True(t, errors.Is(err, relayerrors.ErrInvalidCredentials))
	}

	after, ok := f.manager.Get("42")
	require.True(t, ok)
	require.Equal(t, before.ID, after.ID)
	require.True(t, after.Running)
	require.Len(t, f.dialer.Clients(), 1)
	require.False(t, f.dialer.Last().Closed())
}

func TestStartRequiresOwner(t *testing.T) {
	f := setup(t)
	err := f.manager.Start(context.Background(), " ", "tok", "key")
	require.True(t, errors.Is(err, relayerrors.ErrInvalidRequest))
}

func TestStartDialFailureLeavesNoSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Start(ctx, "42", "tok-1", "key-1"))
	first := f.dialer.Last()

	err := f.manager.Start(ctx, "42", "bad-token", "key-2")
	require.True(t, errors.Is(err, relayerrors.ErrStartupFailed))

	_, ok := f.manager.Get("42")
	require.False(t, ok)
	require.True(t, first.Closed())
}

func TestStartCompleterFailureClosesClient(t *testing.T) {
	f := setup(t)
	err := f.manager.Start(context.Background(), "42", "tok-1", "bad-key")
	require.True(t, errors.Is(err, relayerrors.ErrStartupFailed))

	_, ok := f.manager.Get("42")
	require.False(t, ok)
	require.True(t, f.dialer.Last().Closed())
}

func TestStop(t *testing.T) {
	f := setup(t)
	require.False(t, f.manager.Stop("42"))

	require.NoError(t, f.manager.Start(context.Background(), "42", "tok-1", "key-1"))
	client := f.dialer.Last()
	require.True(t, f.manager.Stop("42"))
	require.True(t, client.Closed())
	require.False(t, f.manager.Stop("42"))

	_, ok := f.manager.Get("42")
	require.False(t, ok)
}

func TestOwnersAreIndependent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	require.NoError(t, f.manager.Start(ctx, "1", "tok-1", "key-1"))
	require.NoError(t, f.manager.Start(ctx, "2", "tok-2", "key-2"))

	require.True(t, f.manager.Stop("1"))
	info, ok := f.manager.Get("2")
	require.True(t, ok)
	require.True(t, info.Running)

	list := f.manager.List()
	require.Len(t, list, 1)
	require.Equal(t, "2", list[0].OwnerID)
}

func TestStopAll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for _, owner := range []string{"1", "2", "3"} {
		require.NoError(t, f.manager.Start(ctx, owner, "tok-"+owner, "key-"+owner))
	}
	f.manager.StopAll()
	require.Empty(t, f.manager.List())
	for _, c := range f.dialer.Clients() {
		require.True(t, c.Closed())
	}
}

func TestSessionSurvivesRequestContext(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, f.manager.Start(ctx, "42", "tok-1", "key-1"))
	cancel()

	client := f.dialer.Last()
	client.PushText(100, "still there?")
	require.Equal(t, "key-1: still there?", nextSent(t, client).Text)
}

func TestSessionDeregistersWhenStreamEnds(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.manager.Start(context.Background(), "42", "tok-1", "key-1"))

	// Closing the client underneath the session ends its update stream.
	require.NoError(t, f.dialer.Last().Close())

	require.Eventually(t, func() bool {
		_, ok := f.manager.Get("42")
		return !ok
	}, 2*time.Second, 5*time.Millisecond)
}

// settledRepo registers a session only after its receive loop has returned.
type settledRepo struct {
	*sessions.InMemoryRepo
}

func (r settledRepo) Swap(ownerID string, s *sessions.Session) *sessions.Session {
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
	}
	return r.InMemoryRepo.Swap(ownerID, s)
}

func TestStartFailsWhenStreamEndsBeforeRegistration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	inner := botfake.NewFakeDialer()
	closedOnArrival := bot.DialerFunc(func(ctx context.Context, token string) (bot.Client, error) {
		c, err := inner.Dial(ctx, token)
		if err == nil {
			_ = c.Close()
		}
		return c, err
	})
	manager := sessions.NewManager(ctx, settledRepo{sessions.NewInMemoryRepo()}, closedOnArrival,
		completionfake.NewFakeFactory(), sessions.WithStopTimeout(time.Second))

	err := manager.Start(context.Background(), "42", "tok-1", "key-1")
	require.True(t, errors.Is(err, relayerrors.ErrStartupFailed))
	_, ok := manager.Get("42")
	require.False(t, ok)
}

func TestProcessShutdownEndsSessions(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.manager.Start(context.Background(), "42", "tok-1", "key-1"))
	f.cancelAll()

	require.Eventually(t, func() bool { return len(f.manager.List()) == 0 }, 2*time.Second, 5*time.Millisecond)

	err := f.manager.Start(context.Background(), "42", "tok-2", "key-2")
	require.True(t, errors.Is(err, relayerrors.ErrStartupFailed))
}

func TestConcurrentStartsLeaveOneSession(t *testing.T) {
	f := setup(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.manager.Start(context.Background(), "42", "tok", "key"))
		}()
	}
	wg.Wait()

	require.Len(t, f.manager.List(), 1)
	clients := f.dialer.Clients()
	require.Len(t, clients, 10)
	open := 0
	for _, c := range clients {
		if !c.Closed() {
			open++
		}
	}
	require.Equal(t, 1, open)
}
