package access_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-relay-server/access"
	"github.com/jrsteele09/go-relay-server/access/accessfakes"
	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type registryFixture struct {
	repo      *access.InMemoryRepo
	notifier  *accessfakes.FakeNotifier
	publisher *accessfakes.FakePublisher
	registry  *access.Registry
}

func setupRegistry(t *testing.T) *registryFixture {
	t.Helper()
	f := &registryFixture{
		repo:      access.NewInMemoryRepo(),
		notifier:  accessfakes.NewFakeNotifier(),
		publisher: accessfakes.NewFakePublisher(),
	}
	r, err := access.NewRegistry(f.repo, f.notifier,
		access.WithPublisher(f.publisher),
		access.WithNowTime(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	f.registry = r
	return f
}

func TestNewRegistryRequiresDependencies(t *testing.T) {
	_, err := access.NewRegistry(nil, accessfakes.NewFakeNotifier())
	require.Error(t, err)
	_, err = access.NewRegistry(access.NewInMemoryRepo(), nil)
	require.Error(t, err)
}

func TestCheckStatusUnknownUser(t *testing.T) {
	f := setupRegistry(t)
	status, err := f.registry.CheckStatus(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, access.StatusNone, status)
}

func TestRequestAccessNotifiesOnce(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	status, err := f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	require.Equal(t, access.StatusPending, status)

	status, err = f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	require.Equal(t, access.StatusPending, status)

	reqs := f.notifier.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, access.Request{UserID: "42", DisplayName: "ada"}, reqs[0])

	record, err := f.repo.Get(ctx, "42")
	require.NoError(t, err)
	require.True(t, record.Notified)
	require.Equal(t, fixedNow, record.RequestedAt)
}

func TestRequestAccessDeliveryFailureStaysPendingAndRetries(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()
	f.notifier.SetErr(fmt.Errorf("chat not found"))

	status, err := f.registry.RequestAccess(ctx, "42", "ada")
	require.Error(t, err)
	require.True(t, errors.Is(err, relayerrors.ErrNotificationDeliveryFailed))
	require.Equal(t, access.StatusPending, status)

	status, err = f.registry.CheckStatus(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, access.StatusPending, status)

	f.notifier.SetErr(nil)
	status, err = f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	require.Equal(t, access.StatusPending, status)
	require.Len(t, f.notifier.Requests(), 2)

	// Delivered now, so no third prompt.
	_, err = f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	require.Len(t, f.notifier.Requests(), 2)
}

func TestRequestAccessApprovedUserIsNotPrompted(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	_, err = f.registry.Resolve(ctx, "42", access.StatusApproved)
	require.NoError(t, err)

	status, err := f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	require.Equal(t, access.StatusApproved, status)
	require.Len(t, f.notifier.Requests(), 1)
}

func TestRequestAccessDeclinedUserReturnsToPending(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	_, err = f.registry.Resolve(ctx, "42", access.StatusDeclined)
	require.NoError(t, err)

	status, err := f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	require.Equal(t, access.StatusPending, status)
	require.Len(t, f.notifier.Requests(), 2)
}

func TestRequestAccessRequiresUserID(t *testing.T) {
	f := setupRegistry(t)
	_, err := f.registry.RequestAccess(context.Background(), "  ", "ada")
	require.True(t, errors.Is(err, relayerrors.ErrInvalidRequest))
	require.Empty(t, f.notifier.Requests())
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		setup     []access.Status
		decision  access.Status
		wantPrev  access.Status
		wantFinal access.Status
		wantErr   error
	}{
		{name: "approve unknown user", decision: access.StatusApproved, wantPrev: access.StatusNone, wantFinal: access.StatusApproved},
		{name: "decline unknown user", decision: access.StatusDeclined, wantPrev: access.StatusNone, wantFinal: access.StatusDeclined},
		{name: "replay approval", setup: []access.Status{access.StatusApproved}, decision: access.StatusApproved, wantPrev: access.StatusApproved, wantFinal: access.StatusApproved},
		{name: "decline overwrites approval", setup: []access.Status{access.StatusApproved}, decision: access.StatusDeclined, wantPrev: access.StatusApproved, wantFinal: access.StatusDeclined},
		{name: "approve overwrites decline", setup: []access.Status{access.StatusDeclined}, decision: access.StatusApproved, wantPrev: access.StatusDeclined, wantFinal: access.StatusApproved},
		{name: "pending is not a decision", decision: access.StatusPending, wantErr: relayerrors.ErrInvalidDecision, wantFinal: access.StatusNone},
		{name: "none is not a decision", decision: access.StatusNone, wantErr: relayerrors.ErrInvalidDecision, wantFinal: access.StatusNone},
		{name: "garbage is not a decision", decision: access.Status("maybe"), wantErr: relayerrors.ErrInvalidDecision, wantFinal: access.StatusNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupRegistry(t)
			ctx := context.Background()
			for _, s := range tt.setup {
				_, err := f.registry.Resolve(ctx, "7", s)
				require.NoError(t, err)
			}

			prev, err := f.registry.Resolve(ctx, "7", tt.decision)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantPrev, prev)
			}

			status, err := f.registry.CheckStatus(ctx, "7")
			require.NoError(t, err)
			require.Equal(t, tt.wantFinal, status)
		})
	}
}

func TestStatusChangesArePublished(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	_, err := f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)
	_, err = f.registry.Resolve(ctx, "42", access.StatusApproved)
	require.NoError(t, err)
	_, err = f.registry.Resolve(ctx, "42", access.StatusApproved)
	require.NoError(t, err)

	changes := f.publisher.Changes()
	require.Len(t, changes, 2)
	require.Equal(t, access.StatusNone, changes[0].Previous)
	require.Equal(t, access.StatusPending, changes[0].Status)
	require.Equal(t, access.StatusPending, changes[1].Previous)
	require.Equal(t, access.StatusApproved, changes[1].Status)
	require.Equal(t, fixedNow, changes[1].At)
}

func TestPublisherFailureDoesNotFailResolve(t *testing.T) {
	f := setupRegistry(t)
	f.publisher.SetErr(fmt.Errorf("bus closed"))

	_, err := f.registry.Resolve(context.Background(), "42", access.StatusApproved)
	require.NoError(t, err)
}

func TestConcurrentRequestsNotifyOnce(t *testing.T) {
	f := setupRegistry(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := f.registry.RequestAccess(ctx, "42", "ada")
			assert.NoError(t, err)
			assert.Equal(t, access.StatusPending, status)
		}()
	}
	wg.Wait()
	require.Len(t, f.notifier.Requests(), 1)
}
