package approval_test

import (
	"testing"

	"github.com/jrsteele09/go-relay-server/access"
	"github.com/jrsteele09/go-relay-server/approval"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		data string
		want approval.Action
		ok   bool
	}{
		{data: "confirm_42", want: approval.Action{Verb: approval.VerbConfirm, UserID: "42"}, ok: true},
		{data: "decline_42", want: approval.Action{Verb: approval.VerbDecline, UserID: "42"}, ok: true},
		{data: "confirm_a_b", want: approval.Action{Verb: approval.VerbConfirm, UserID: "a_b"}, ok: true},
		{data: "confirm_", ok: false},
		{data: "confirm", ok: false},
		{data: "approve_42", ok: false},
		{data: "CONFIRM_42", ok: false},
		{data: "", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			got, ok := approval.ParseAction(tt.data)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestActionRoundTripAndOutcome(t *testing.T) {
	confirm := approval.Action{Verb: approval.VerbConfirm, UserID: "42"}
	parsed, ok := approval.ParseAction(confirm.Token())
	require.True(t, ok)
	require.Equal(t, confirm, parsed)
	require.Equal(t, access.StatusApproved, confirm.Decision())
	require.Equal(t, "✅ User 42 Approved", confirm.Outcome())

	decline := approval.Action{Verb: approval.VerbDecline, UserID: "42"}
	require.Equal(t, "decline_42", decline.Token())
	require.Equal(t, access.StatusDeclined, decline.Decision())
	require.Equal(t, "❌ User 42 Declined", decline.Outcome())
}
