package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-relay-server/access"
	"github.com/jrsteele09/go-relay-server/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan access.StatusChange) access.StatusChange {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok)
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no status change received")
	}
	return access.StatusChange{}
}

func TestSubscribeFiltersByUser(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mine, err := bus.SubscribeStatus(ctx, "42")
	require.NoError(t, err)
	all, err := bus.SubscribeStatus(ctx, "")
	require.NoError(t, err)

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, bus.PublishStatus(ctx, access.StatusChange{UserID: "7", Previous: access.StatusNone, Status: access.StatusPending, At: at}))
	require.NoError(t, bus.PublishStatus(ctx, access.StatusChange{UserID: "42", Previous: access.StatusPending, Status: access.StatusApproved, At: at}))

	got := receive(t, mine)
	require.Equal(t, "42", got.UserID)
	require.Equal(t, access.StatusApproved, got.Status)
	require.Equal(t, access.StatusPending, got.Previous)
	require.True(t, at.Equal(got.At))

	require.Equal(t, "7", receive(t, all).UserID)
	require.Equal(t, "42", receive(t, all).UserID)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.SubscribeStatus(ctx, "42")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestRegistryPublishesToBus(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := bus.SubscribeStatus(ctx, "42")
	require.NoError(t, err)

	registry, err := access.NewRegistry(access.NewInMemoryRepo(), nopNotifier{}, access.WithPublisher(bus))
	require.NoError(t, err)
	_, err = registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	_, err = registry.Resolve(ctx, "42", access.StatusDeclined)
	require.NoError(t, err)

	require.Equal(t, access.StatusPending, receive(t, ch).Status)
	require.Equal(t, access.StatusDeclined, receive(t, ch).Status)
}

type nopNotifier struct{}

func (nopNotifier) NotifyAccessRequest(context.Context, access.Request) error { return nil }
