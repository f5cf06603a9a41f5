package approval

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-relay-server/access"
	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/pkg/errors"
)

var _ access.Notifier = (*Notifier)(nil)

// Notifier posts access prompts with Confirm/Decline buttons to the admin chat.
type Notifier struct {
	client      bot.Client
	adminChatID int64
}

func NewNotifier(client bot.Client, adminChatID int64) *Notifier {
	return &Notifier{client: client, adminChatID: adminChatID}
}

func (n *Notifier) NotifyAccessRequest(ctx context.Context, req access.Request) error {
	_, err := n.client.Send(ctx, PromptMessage(n.adminChatID, req))
	return errors.Wrapf(err, "[Notifier] prompt for user %s", req.UserID)
}

// PromptMessage builds the admin prompt for req.
func PromptMessage(chatID int64, req access.Request) bot.OutgoingMessage {
	user := "-"
	if req.DisplayName != "" {
		user = "@" + bot.EscapeMarkdown(req.DisplayName)
	}
	confirm := Action{Verb: VerbConfirm, UserID: req.UserID}
	decline := Action{Verb: VerbDecline, UserID: req.UserID}
	return bot.OutgoingMessage{
		ChatID: chatID,
		Text:   fmt.Sprintf("⚠️ *Access Request*\nUser: %s\nID: %s", user, bot.EscapeMarkdown(req.UserID)),
		Format: bot.FormatMarkdown,
		Buttons: [][]bot.Button{{
			{Text: "✅ Confirm", Data: confirm.Token()},
			{Text: "❌ Decline", Data: decline.Token()},
		}},
	}
}
