// Package event defines the closed set of events the realtime layer exchanges
// with the notes backend, the JSON envelope codec, and the dispatcher that
// fans inbound events out to subscribers.
package event

import (
	"encoding/json"
	"time"
)

// Event is implemented by every payload in the closed event union.
type Event interface {
	EventKind() Kind
}

// Status is a user's presence status.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// IsValidStatus reports whether the given status is a valid Status.
func IsValidStatus(status string) bool {
	switch Status(status) {
	case StatusOnline, StatusOffline:
		return true
	default:
		return false
	}
}

// User is a participant as it appears in rosters and join events.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Email  string `json:"email,omitempty"`
}

// StatusUpdate reports a user going online or offline. Flows both ways: the
// server pushes friends' transitions, the client announces its own.
type StatusUpdate struct {
	UserID      string    `json:"userId"`
	Status      Status    `json:"status"`
	LastSeen    time.Time `json:"lastSeen,omitzero"`
	CurrentPage string    `json:"currentPage,omitempty"`
}

// NoteFields are the content fields a note edit may touch. Nil means
// "unchanged".
type NoteFields struct {
	Title   *string  `json:"title,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// NoteUpdate is a content edit delta for a note.
type NoteUpdate struct {
	NoteID  string     `json:"noteId"`
	Updates NoteFields `json:"updates"`
}

// DrawUpdate carries whiteboard data for a note. Outbound drawing updates are
// debounced by the collaboration channel; the data itself is opaque here.
type DrawUpdate struct {
	NoteID         string          `json:"noteId"`
	WhiteboardData json.RawMessage `json:"whiteboardData"`
}

// FriendRequest is an incoming friend request record.
type FriendRequest struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	FriendEmail string    `json:"friendEmail"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NoteShare announces that a note was shared with the local user.
type NoteShare struct {
	NoteID   string `json:"noteId"`
	SharedBy string `json:"sharedBy"`
	Role     string `json:"role"`
}

// InstanceInvite invites the local user to a workspace instance.
type InstanceInvite struct {
	ID           string `json:"id"`
	InstanceID   string `json:"instanceId"`
	InstanceName string `json:"instanceName,omitempty"`
	InvitedBy    string `json:"invitedBy"`
}

// ActiveUsersList is an authoritative roster snapshot for one room.
type ActiveUsersList struct {
	NoteID string `json:"noteId"`
	Users  []User `json:"users"`
}

// UserJoinedNote reports a user joining a room the client is in.
type UserJoinedNote struct {
	NoteID string `json:"noteId"`
	User   User   `json:"user"`
}

// UserLeftNote reports a user leaving a room the client is in.
type UserLeftNote struct {
	NoteID string `json:"noteId"`
	UserID string `json:"userId"`
}

// OnlineUsersList is an authoritative presence snapshot, sent in response to
// request-online-users.
type OnlineUsersList struct {
	Users []StatusUpdate `json:"users"`
}

// JoinRoom subscribes the client to a room's broadcast scope.
type JoinRoom struct {
	RoomID string `json:"roomId"`
}

// LeaveRoom unsubscribes the client from a room.
type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

// RequestActiveUsers asks the server for a room's roster snapshot.
type RequestActiveUsers struct {
	NoteID string `json:"noteId"`
}

// RequestOnlineUsers asks the server for a presence snapshot.
type RequestOnlineUsers struct{}

// Connected is published locally after every successful (re)connection.
// Subscribers holding derived state resync on it.
type Connected struct{}

// Disconnected is published locally when the transport drops or is torn down.
type Disconnected struct {
	Reason string `json:"reason,omitempty"`
}

// Reconnecting is published locally before each backoff wait.
type Reconnecting struct {
	Attempt int `json:"attempt"`
}

func (StatusUpdate) EventKind() Kind       { return KindUserStatus }
func (NoteUpdate) EventKind() Kind         { return KindNoteUpdate }
func (DrawUpdate) EventKind() Kind         { return KindDrawUpdate }
func (FriendRequest) EventKind() Kind      { return KindFriendRequest }
func (NoteShare) EventKind() Kind          { return KindNoteShare }
func (InstanceInvite) EventKind() Kind     { return KindInstanceInvite }
func (ActiveUsersList) EventKind() Kind    { return KindActiveUsersList }
func (UserJoinedNote) EventKind() Kind     { return KindUserJoinedNote }
func (UserLeftNote) EventKind() Kind       { return KindUserLeftNote }
func (OnlineUsersList) EventKind() Kind    { return KindOnlineUsersList }
func (JoinRoom) EventKind() Kind           { return KindJoinRoom }
func (LeaveRoom) EventKind() Kind          { return KindLeaveRoom }
func (RequestActiveUsers) EventKind() Kind { return KindRequestActiveUsers }
func (RequestOnlineUsers) EventKind() Kind { return KindRequestOnlineUsers }
func (Connected) EventKind() Kind          { return KindConnected }
func (Disconnected) EventKind() Kind       { return KindDisconnected }
func (Reconnecting) EventKind() Kind       { return KindReconnecting }
