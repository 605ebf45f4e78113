package transport

// State is the connection lifecycle state. Transitions per attempt cycle:
// disconnected -> connecting -> {connected | errored} -> reconnecting ->
// connecting ...
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateErrored      State = "errored"
)

// IsValidState reports whether the given state is a valid State.
func IsValidState(state string) bool {
	switch State(state) {
	case StateDisconnected, StateConnecting, StateConnected, StateReconnecting, StateErrored:
		return true
	default:
		return false
	}
}

// Stats are cumulative transport counters, exposed on the status endpoint.
type Stats struct {
	FramesReceived int64 `json:"frames_received"`
	FramesSent     int64 `json:"frames_sent"`
	FramesDropped  int64 `json:"frames_dropped"`
	Reconnects     int64 `json:"reconnects"`
}
