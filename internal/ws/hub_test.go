package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupgames-service/internal/models"
)

func testClient(userID string) *Client {
	return newClient(nil, ConnInfo{ConnID: newConnID(), UserID: userID}, nil)
}

func drain(t *testing.T, c *Client) []models.GroupEvent {
	t.Helper()
	var out []models.GroupEvent
	for {
		select {
		case raw := <-c.send:
			var ev models.GroupEvent
			require.NoError(t, json.Unmarshal(raw, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHubJoinLeave(t *testing.T) {
	hub := NewHub()
	c := testClient("u1")

	hub.Join(2, c)
	hub.Join(3, c)
	assert.Equal(t, 1, hub.RoomSize(2))
	assert.True(t, hub.InRoom(3, c))

	hub.Leave(2, c)
	assert.Equal(t, 0, hub.RoomSize(2))
	assert.False(t, hub.InRoom(2, c))
	assert.Len(t, hub.rooms, 1)

	left := hub.Remove(c)
	assert.Equal(t, []int{3}, left)
	assert.Empty(t, hub.rooms)
	assert.Empty(t, c.rooms)
}

func TestHubLeaveUserDropsAllConnections(t *testing.T) {
	hub := NewHub()
	phone, laptop, friend := testClient("u1"), testClient("u1"), testClient("u2")
	for _, c := range []*Client{phone, laptop, friend} {
		hub.Join(5, c)
	}
	hub.Join(6, phone)

	assert.Equal(t, 2, hub.LeaveUser(5, "u1"))
	assert.Equal(t, 1, hub.RoomSize(5))
	assert.False(t, hub.InRoom(5, phone))
	assert.False(t, hub.InRoom(5, laptop))
	assert.True(t, hub.InRoom(6, phone))

	hub.Broadcast(5, models.GroupEvent{Type: models.EventNewMessage, Payload: map[string]int{"groupId": 5}})
	assert.Empty(t, drain(t, phone))
	assert.Empty(t, drain(t, laptop))
	require.Len(t, drain(t, friend), 1)

	assert.Zero(t, hub.LeaveUser(5, "u1"))
}

func TestHubBroadcastScopedToRoom(t *testing.T) {
	hub := NewHub()
	a, b, other := testClient("a"), testClient("b"), testClient("c")
	hub.Join(1, a)
	hub.Join(1, b)
	hub.Join(2, other)

	hub.Broadcast(1, models.GroupEvent{Type: models.EventGameStateChanged, Payload: map[string]int{"groupId": 1}})

	require.Len(t, drain(t, a), 1)
	require.Len(t, drain(t, b), 1)
	assert.Empty(t, drain(t, other))
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := testClient("slow")
	hub.Join(1, slow)
	for i := 0; i < sendBuffer; i++ {
		require.True(t, slow.enqueue([]byte("x")))
	}

	hub.Broadcast(1, models.GroupEvent{Type: models.EventNewMessage})

	select {
	case <-slow.done:
	default:
		t.Fatal("expected slow client to be closed")
	}
	// enqueue on a closed client is a silent no-op
	assert.True(t, slow.enqueue([]byte("y")))
}
