package ws

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"groupgames-service/internal/models"
	"groupgames-service/internal/observability"
)

const wsKind = "group"

// Hub maintains the group rooms. A client may sit in several rooms at once.
type Hub struct {
	rooms map[int]map[*Client]bool
	mu    sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[int]map[*Client]bool)}
}

// Join adds the client to a group room.
func (h *Hub) Join(groupID int, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[groupID]; !ok {
		h.rooms[groupID] = make(map[*Client]bool)
	}
	h.rooms[groupID][client] = true
	client.rooms[groupID] = true
}

// Leave removes the client from one room.
func (h *Hub) Leave(groupID int, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(groupID, client)
}

func (h *Hub) leaveLocked(groupID int, client *Client) {
	if clients, ok := h.rooms[groupID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, groupID)
		}
	}
	delete(client.rooms, groupID)
}

// LeaveUser removes every connection the user holds in the room and returns
// how many were removed.
func (h *Hub) LeaveUser(groupID int, userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := 0
	for client := range h.rooms[groupID] {
		if client.info.UserID == userID {
			h.leaveLocked(groupID, client)
			removed++
		}
	}
	return removed
}

// InRoom reports whether the client joined the room.
func (h *Hub) InRoom(groupID int, client *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.rooms[groupID]
}

// Remove drops the client from every room and returns the rooms it was in.
func (h *Hub) Remove(client *Client) []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	left := make([]int, 0, len(client.rooms))
	for groupID := range client.rooms {
		left = append(left, groupID)
		h.leaveLocked(groupID, client)
	}
	return left
}

// RoomSize returns the number of connections in a room.
func (h *Hub) RoomSize(groupID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[groupID])
}

// Broadcast sends the event to every connection in the group room. Clients
// whose buffers are full are dropped.
func (h *Hub) Broadcast(groupID int, event models.GroupEvent) {
	payload, err := encode(event)
	if err != nil {
		logrus.WithError(err).WithField("event", event.Type).Error("encode relay event")
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[groupID]))
	for client := range h.rooms[groupID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.enqueue(payload) {
			logrus.WithFields(logrus.Fields{
				"conn_id":  client.info.ConnID,
				"user_id":  client.info.UserID,
				"group_id": groupID,
			}).Warn("websocket send buffer full, dropping client")
			observability.IncWSDropped("buffer_full")
			h.publishWSEvent(client, groupID, "ws_error", "send buffer full")
			client.close()
		}
	}
	observability.IncWSEvent(wsKind, event.Type)
}

func (h *Hub) publishWSEvent(client *Client, groupID int, name, reason string) {
	info := client.info
	ws := map[string]interface{}{
		"kind":        wsKind,
		"resource_id": groupID,
		"event":       name,
		"conn_id":     info.ConnID,
		"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
	}
	if reason != "" {
		ws["reason"] = reason
	}
	payload := map[string]interface{}{
		"ws": ws,
		"identity": map[string]interface{}{
			"user_id": info.UserID,
			"ip":      info.IP,
		},
	}

	_ = observability.PublishEvent(context.Background(), "ws_events.groups", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		RequestID: info.RequestID,
		TraceID:   info.TraceID,
		Payload:   payload,
	})
	observability.IncWSEvent(wsKind, name)
}
