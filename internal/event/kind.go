package event

// Kind identifies an event on the wire or in the local lifecycle stream.
type Kind string

// Inbound events (server -> client).
const (
	KindUserStatus      Kind = "user:status"
	KindNoteUpdate      Kind = "note:update"
	KindDrawUpdate      Kind = "draw:update"
	KindFriendRequest   Kind = "friend:added"
	KindNoteShare       Kind = "note:share"
	KindInstanceInvite  Kind = "instance:invitation"
	KindActiveUsersList Kind = "active-users-list"
	KindUserJoinedNote  Kind = "user-joined-note"
	KindUserLeftNote    Kind = "user-left-note"
	KindOnlineUsersList Kind = "online-users-list"
)

// Outbound events (client -> server).
const (
	KindJoinRoom           Kind = "join-room"
	KindLeaveRoom          Kind = "leave-room"
	KindRequestActiveUsers Kind = "request-active-users"
	KindRequestOnlineUsers Kind = "request-online-users"
)

// Lifecycle events, published locally by the transport. Never serialized.
const (
	KindConnected    Kind = "connected"
	KindDisconnected Kind = "disconnected"
	KindReconnecting Kind = "reconnecting"
)

// IsLifecycle reports whether the kind is a local transport lifecycle event.
func (k Kind) IsLifecycle() bool {
	switch k {
	case KindConnected, KindDisconnected, KindReconnecting:
		return true
	default:
		return false
	}
}

// IsValidInbound reports whether the kind is one the server may send.
func IsValidInbound(kind string) bool {
	switch Kind(kind) {
	case KindUserStatus, KindNoteUpdate, KindDrawUpdate, KindFriendRequest,
		KindNoteShare, KindInstanceInvite, KindActiveUsersList,
		KindUserJoinedNote, KindUserLeftNote, KindOnlineUsersList:
		return true
	default:
		return false
	}
}
