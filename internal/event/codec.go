package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownKind is returned when a frame names an event outside the union.
	ErrUnknownKind = errors.New("unknown event kind")
	// ErrLocalOnly is returned when a lifecycle event is asked to be encoded.
	ErrLocalOnly = errors.New("lifecycle events are not serializable")
	// ErrInvalidFrame is returned for frames missing the event name.
	ErrInvalidFrame = errors.New("invalid frame")
)

// Envelope is the wire framing: an event name plus its JSON payload.
type Envelope struct {
	Event   Kind            `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode wraps an event in an envelope and marshals it for the wire.
func Encode(ev Event) ([]byte, error) {
	kind := ev.EventKind()
	if kind.IsLifecycle() {
		return nil, ErrLocalOnly
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return json.Marshal(Envelope{Event: kind, Payload: payload})
}

// Decode parses an inbound frame into its typed event.
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.Event == "" {
		return nil, ErrInvalidFrame
	}

	var ev Event
	switch env.Event {
	case KindUserStatus:
		ev = &StatusUpdate{}
	case KindNoteUpdate:
		ev = &NoteUpdate{}
	case KindDrawUpdate:
		ev = &DrawUpdate{}
	case KindFriendRequest:
		ev = &FriendRequest{}
	case KindNoteShare:
		ev = &NoteShare{}
	case KindInstanceInvite:
		ev = &InstanceInvite{}
	case KindActiveUsersList:
		ev = &ActiveUsersList{}
	case KindUserJoinedNote:
		ev = &UserJoinedNote{}
	case KindUserLeftNote:
		ev = &UserLeftNote{}
	case KindOnlineUsersList:
		ev = &OnlineUsersList{}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, env.Event)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Event, err)
		}
	}
	return ev, nil
}
