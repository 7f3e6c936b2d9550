package models

// Realtime event names exchanged over the group relay.
const (
	EventJoinGroup          = "join-group"
	EventLeaveGroup         = "leave-group"
	EventSendMessage        = "send-message"
	EventNewMessage         = "new-message"
	EventGameMove           = "game-move"
	EventGameUpdate         = "game-update"
	EventGameStateUpdate    = "game-state-update"
	EventGameStateChanged   = "game-state-changed"
	EventGameSessionUpdated = "game-session-updated"
	EventPlayerStatusUpdate = "player-status-update"
	EventPlayerStatusChange = "player-status-changed"
)

// GroupEvent is emitted over WebSocket connections in a group room.
type GroupEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}
