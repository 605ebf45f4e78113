package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTypedEvents(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		check func(t *testing.T, ev Event)
	}{
		{
			name:  "user status",
			frame: `{"event":"user:status","payload":{"userId":"u1","status":"online","currentPage":"/notes/42"}}`,
			check: func(t *testing.T, ev Event) {
				su, ok := ev.(*StatusUpdate)
				require.True(t, ok)
				assert.Equal(t, "u1", su.UserID)
				assert.Equal(t, StatusOnline, su.Status)
				assert.Equal(t, "/notes/42", su.CurrentPage)
			},
		},
		{
			name:  "roster snapshot",
			frame: `{"event":"active-users-list","payload":{"noteId":"note:42","users":[{"id":"a"},{"id":"b"}]}}`,
			check: func(t *testing.T, ev Event) {
				list, ok := ev.(*ActiveUsersList)
				require.True(t, ok)
				assert.Equal(t, "note:42", list.NoteID)
				assert.Len(t, list.Users, 2)
			},
		},
		{
			name:  "user left note",
			frame: `{"event":"user-left-note","payload":{"noteId":"note:42","userId":"b"}}`,
			check: func(t *testing.T, ev Event) {
				left, ok := ev.(*UserLeftNote)
				require.True(t, ok)
				assert.Equal(t, "b", left.UserID)
			},
		},
		{
			name:  "draw update keeps data opaque",
			frame: `{"event":"draw:update","payload":{"noteId":"n1","whiteboardData":{"strokes":[1,2,3]}}}`,
			check: func(t *testing.T, ev Event) {
				draw, ok := ev.(*DrawUpdate)
				require.True(t, ok)
				assert.JSONEq(t, `{"strokes":[1,2,3]}`, string(draw.WhiteboardData))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			tt.check(t, ev)
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"event":"totally:new","payload":{}}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDecodeMissingEventName(t *testing.T) {
	_, err := Decode([]byte(`{"payload":{}}`))
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Encode(&NoteShare{NoteID: "n1", SharedBy: "alice", Role: "viewer"})
	require.NoError(t, err)

	ev, err := Decode(data)
	require.NoError(t, err)
	share, ok := ev.(*NoteShare)
	require.True(t, ok)
	assert.Equal(t, "viewer", share.Role)
}

func TestEncodeOmitsUnsetLastSeen(t *testing.T) {
	data, err := Encode(&StatusUpdate{UserID: "u1", Status: StatusOnline})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "lastSeen")

	seen := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	data, err = Encode(&StatusUpdate{UserID: "u1", Status: StatusOffline, LastSeen: seen})
	require.NoError(t, err)
	assert.Contains(t, string(data), "lastSeen")
}

func TestEncodeRejectsLifecycleEvents(t *testing.T) {
	for _, ev := range []Event{&Connected{}, &Disconnected{}, &Reconnecting{Attempt: 1}} {
		_, err := Encode(ev)
		assert.ErrorIs(t, err, ErrLocalOnly)
	}
}

func TestIsValidStatus(t *testing.T) {
	tests := []struct {
		status   string
		expected bool
	}{
		{"online", true},
		{"offline", true},
		{"ONLINE", false},
		{"away", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidStatus(tt.status); got != tt.expected {
			t.Errorf("IsValidStatus(%q) = %v, want %v", tt.status, got, tt.expected)
		}
	}
}
