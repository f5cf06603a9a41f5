package approval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-relay-server/access"
	"github.com/jrsteele09/go-relay-server/approval"
	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/jrsteele09/go-relay-server/bot/botfake"
	"github.com/stretchr/testify/require"
)

const adminChat int64 = 900

type fixture struct {
	admin    *botfake.FakeClient
	registry *access.Registry
	channel  *approval.Channel
}

func setup(t *testing.T) *fixture {
	t.Helper()
	admin := botfake.NewFakeClient("master")
	registry, err := access.NewRegistry(access.NewInMemoryRepo(), approval.NewNotifier(admin, adminChat))
	require.NoError(t, err)
	return &fixture{
		admin:    admin,
		registry: registry,
		channel:  approval.NewChannel(registry, admin),
	}
}

func TestNotifierSendsPrompt(t *testing.T) {
	f := setup(t)
	status, err := f.registry.RequestAccess(context.Background(), "42", "ada_l")
	require.NoError(t, err)
	require.Equal(t, access.StatusPending, status)

	sent := f.admin.Sent()
	require.Len(t, sent, 1)
	msg := sent[0]
	require.Equal(t, adminChat, msg.ChatID)
	require.Equal(t, bot.FormatMarkdown, msg.Format)
	require.Equal(t, "⚠️ *Access Request*\nUser: @ada\\_l\nID: 42", msg.Text)
	require.Equal(t, [][]bot.Button{{
		{Text: "✅ Confirm", Data: "confirm_42"},
		{Text: "❌ Decline", Data: "decline_42"},
	}}, msg.Buttons)
}

func TestNotifierFailureIsDeliveryFailure(t *testing.T) {
	f := setup(t)
	f.admin.SetSendErr(errors.New("chat not found"))
	_, err := f.registry.RequestAccess(context.Background(), "42", "ada")
	require.Error(t, err)
}

func TestPromptWithoutDisplayName(t *testing.T) {
	msg := approval.PromptMessage(adminChat, access.Request{UserID: "7"})
	require.Equal(t, "⚠️ *Access Request*\nUser: -\nID: 7", msg.Text)
}

func TestChannelConfirmAndDecline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	prompt := bot.MessageRef{ChatID: adminChat, MessageID: 3}

	_, err := f.registry.RequestAccess(ctx, "42", "ada")
	require.NoError(t, err)

	require.NoError(t, f.channel.Handle(ctx, bot.Callback{ID: "cb-1", Data: "confirm_42", Message: prompt}))
	status, err := f.registry.CheckStatus(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, access.StatusApproved, status)

	require.NoError(t, f.channel.Handle(ctx, bot.Callback{ID: "cb-2", Data: "decline_42", Message: prompt}))
	status, err = f.registry.CheckStatus(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, access.StatusDeclined, status)

	require.Equal(t, []botfake.Edit{
		{Ref: prompt, Text: "✅ User 42 Approved"},
		{Ref: prompt, Text: "❌ User 42 Declined"},
	}, f.admin.Edits())
	require.Equal(t, []string{"cb-1", "cb-2"}, f.admin.Answered())
}

func TestChannelRedeliveryIsHarmless(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cb := bot.Callback{ID: "cb-1", Data: "confirm_42", Message: bot.MessageRef{ChatID: adminChat, MessageID: 3}}

	require.NoError(t, f.channel.Handle(ctx, cb))
	require.NoError(t, f.channel.Handle(ctx, cb))

	status, err := f.registry.CheckStatus(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, access.StatusApproved, status)
}

func TestChannelIgnoresUnknownCallbacks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.channel.Handle(ctx, bot.Callback{ID: "cb-1", Data: "approve_42"}))
	require.NoError(t, f.channel.Handle(ctx, bot.Callback{ID: "cb-2", Data: "confirm_"}))

	status, err := f.registry.CheckStatus(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, access.StatusNone, status)
	require.Empty(t, f.admin.Edits())
	require.Equal(t, []string{"cb-1", "cb-2"}, f.admin.Answered())
}

func TestChannelEditFailureIsReported(t *testing.T) {
	f := setup(t)
	f.admin.SetEditErr(errors.New("message to edit not found"))

	err := f.channel.Handle(context.Background(), bot.Callback{ID: "cb", Data: "confirm_42"})
	require.Error(t, err)

	// The decision is stored regardless of the prompt edit.
	status, err := f.registry.CheckStatus(context.Background(), "42")
	require.NoError(t, err)
	require.Equal(t, access.StatusApproved, status)
}

func TestListenerDispatchesAdminCallbacks(t *testing.T) {
	f := setup(t)
	listener := approval.NewListener(f.admin, f.channel, adminChat)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- listener.Run(ctx) }()

	f.admin.PushText(adminChat, "hello")
	f.admin.Push(bot.Update{Callback: &bot.Callback{ID: "x", Data: "confirm_13", Message: bot.MessageRef{ChatID: 555, MessageID: 1}}})
	f.admin.Push(bot.Update{Callback: &bot.Callback{ID: "y", Data: "confirm_42", Message: bot.MessageRef{ChatID: adminChat, MessageID: 2}}})

	require.Eventually(t, func() bool {
		status, err := f.registry.CheckStatus(context.Background(), "42")
		return err == nil && status == access.StatusApproved
	}, 2*time.Second, 5*time.Millisecond)

	status, err := f.registry.CheckStatus(context.Background(), "13")
	require.NoError(t, err)
	require.Equal(t, access.StatusNone, status)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}
