// Package approval connects the access registry to the administrator's chat: it sends access prompts
// and turns the administrator's button presses into decisions.
package approval

import (
	"strings"

	"github.com/jrsteele09/go-relay-server/access"
)

type Verb string

const (
	VerbConfirm Verb = "confirm"
	VerbDecline Verb = "decline"
)

// Action is a parsed button press: "<verb>_<userId>".
type Action struct {
	Verb   Verb
	UserID string
}

// ParseAction splits on the first underscore only, so user ids may contain underscores.
func ParseAction(data string) (Action, bool) {
	verb, userID, found := strings.Cut(data, "_")
	if !found || userID == "" {
		return Action{}, false
	}
	switch Verb(verb) {
	case VerbConfirm, VerbDecline:
		return Action{Verb: Verb(verb), UserID: userID}, true
	}
	return Action{}, false
}

// Token renders the callback data carried by the prompt's button.
func (a Action) Token() string {
	return string(a.Verb) + "_" + a.UserID
}

func (a Action) Decision() access.Status {
	if a.Verb == VerbConfirm {
		return access.StatusApproved
	}
	return access.StatusDeclined
}

// Outcome is the text the prompt is edited to once the decision is stored.
func (a Action) Outcome() string {
	if a.Verb == VerbConfirm {
		return "✅ User " + a.UserID + " Approved"
	}
	return "❌ User " + a.UserID + " Declined"
}
