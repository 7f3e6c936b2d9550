package ws

import "time"

// ConnInfo identifies a relay connection in logs and lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
