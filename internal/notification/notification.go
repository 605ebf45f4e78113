// Package notification converts selected domain events into durable
// notification records plus ephemeral UI toasts, exactly once per event.
package notification

import "time"

// Type classifies a notification record.
type Type string

const (
	TypeFriendRequest  Type = "friend_request"
	TypeNoteShare      Type = "note_share"
	TypeInstanceInvite Type = "instance_invitation"
)

// IsValidType reports whether the given type is a valid Type.
func IsValidType(t string) bool {
	switch Type(t) {
	case TypeFriendRequest, TypeNoteShare, TypeInstanceInvite:
		return true
	default:
		return false
	}
}

// Notification is a durable record shown in the notification list. Read flips
// false -> true only; records are removed solely by explicit user action.
type Notification struct {
	ID        string            `json:"id"`
	Type      Type              `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"createdAt"`
	Data      map[string]string `json:"data,omitempty"`
	ActionURL string            `json:"actionUrl,omitempty"`
}

// Severity is the toast display severity.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
)

// Toast is the ephemeral companion to a notification. The UI layer renders
// and expires it; this package only describes it.
type Toast struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}
