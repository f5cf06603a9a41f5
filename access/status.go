package access

import "time"

// Status is the approval state of a user's access request.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
)

// IsDecision reports whether s is a value an administrator can decide.
func (s Status) IsDecision() bool {
	return s == StatusApproved || s == StatusDeclined
}

// Record is the stored access request for one user.
type Record struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName,omitempty"`
	Status      Status    `json:"status"`
	Notified    bool      `json:"notified"` // the admin prompt for the current pending request was delivered
	RequestedAt time.Time `json:"requestedAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Request is what the administrator is asked to decide on.
type Request struct {
	UserID      string
	DisplayName string
}

// StatusChange is published whenever a user's status changes.
type StatusChange struct {
	UserID   string    `json:"userId"`
	Previous Status    `json:"previous"`
	Status   Status    `json:"status"`
	At       time.Time `json:"at"`
}
