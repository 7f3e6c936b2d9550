package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"groupgames-service/internal/models"
	"groupgames-service/internal/observability"
)

// MembershipChecker authorizes room joins.
type MembershipChecker interface {
	IsMember(ctx context.Context, groupID int, userID string) (bool, error)
}

// MessagePoster persists chat messages sent over the relay.
type MessagePoster interface {
	PostMessage(ctx context.Context, groupID int, userID, text string) (models.ChatMessageView, error)
}

// PresenceStore keeps the last announced player status per group.
type PresenceStore interface {
	SetPlayerStatus(ctx context.Context, groupID int, userID, status string) error
	ClearPlayerStatus(ctx context.Context, groupID int, userID string) error
}

// Limits caps inbound events per connection.
type Limits struct {
	EventsPerSecond float64
	Burst           int
}

const handlerTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades authenticated requests and runs the relay protocol.
type Handler struct {
	hub      *Hub
	members  MembershipChecker
	messages MessagePoster
	presence PresenceStore
	limits   Limits
}

// NewHandler constructs a relay Handler. presence may be nil.
func NewHandler(hub *Hub, members MembershipChecker, messages MessagePoster, presence PresenceStore, limits Limits) *Handler {
	return &Handler{hub: hub, members: members, messages: messages, presence: presence, limits: limits}
}

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type inboundPayload struct {
	GroupID   int             `json:"groupId"`
	GameID    int             `json:"gameId"`
	Message   string          `json:"message"`
	Move      json.RawMessage `json:"move"`
	GameState json.RawMessage `json:"gameState"`
	Status    string          `json:"status"`
}

type gameUpdate struct {
	GroupID int             `json:"groupId"`
	GameID  int             `json:"gameId"`
	UserID  string          `json:"userId"`
	Move    json.RawMessage `json:"move"`
}

type gameStateChanged struct {
	GroupID   int             `json:"groupId"`
	GameState json.RawMessage `json:"gameState"`
}

type playerStatusChanged struct {
	GroupID int    `json:"groupId"`
	UserID  string `json:"userId"`
	Status  string `json:"status"`
}

// Handle upgrades the connection. It must run behind the auth middleware.
func (h *Handler) Handle(c *gin.Context) {
	userID := c.GetString("userID")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		IP:          c.ClientIP(),
		RequestID:   c.GetString("request_id"),
		TraceID:     observability.TraceIDFromContext(c.Request.Context()),
		ConnectedAt: time.Now(),
	}

	var limiter *rate.Limiter
	if h.limits.EventsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(h.limits.EventsPerSecond), h.limits.Burst)
	}
	h.serve(newClient(conn, info, limiter))
}

func (h *Handler) serve(client *Client) {
	log := logrus.WithFields(logrus.Fields{
		"conn_id": client.info.ConnID,
		"user_id": client.info.UserID,
		"remote":  client.info.IP,
	})
	log.Info("WebSocket connected")
	observability.IncWSActive(wsKind)
	h.hub.publishWSEvent(client, 0, "ws_connect", "")

	go client.writePump()
	go func() {
		defer func() {
			for _, groupID := range h.hub.Remove(client) {
				h.clearPresence(groupID, client.info.UserID)
			}
			client.close()
			observability.DecWSActive(wsKind)
			log.WithField("duration", time.Since(client.info.ConnectedAt)).Info("WebSocket disconnected")
			h.hub.publishWSEvent(client, 0, "ws_disconnect", "")
		}()
		client.readPump(h.handleMessage)
	}()
}

// handleMessage dispatches one inbound frame. Failures are logged and never
// reported to the client.
func (h *Handler) handleMessage(client *Client, raw []byte) {
	log := logrus.WithFields(logrus.Fields{
		"conn_id": client.info.ConnID,
		"user_id": client.info.UserID,
	})

	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.WithError(err).Warn("malformed relay frame")
		return
	}
	var p inboundPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			log.WithError(err).WithField("event", msg.Type).Warn("malformed relay payload")
			return
		}
	}
	log = log.WithFields(logrus.Fields{"event": msg.Type, "group_id": p.GroupID})

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	switch msg.Type {
	case models.EventJoinGroup:
		member, err := h.members.IsMember(ctx, p.GroupID, client.info.UserID)
		if err != nil {
			log.WithError(err).Error("membership check failed")
			return
		}
		if !member {
			log.Warn("join-group refused for non-member")
			return
		}
		h.hub.Join(p.GroupID, client)

	case models.EventLeaveGroup:
		h.hub.Leave(p.GroupID, client)
		h.clearPresence(p.GroupID, client.info.UserID)

	case models.EventSendMessage:
		if !h.joined(client, p.GroupID, log) {
			return
		}
		view, err := h.messages.PostMessage(ctx, p.GroupID, client.info.UserID, p.Message)
		if err != nil {
			log.WithError(err).Warn("relay chat message rejected")
			return
		}
		h.hub.Broadcast(p.GroupID, models.GroupEvent{Type: models.EventNewMessage, Payload: view})

	case models.EventGameMove:
		if !h.joined(client, p.GroupID, log) {
			return
		}
		h.hub.Broadcast(p.GroupID, models.GroupEvent{Type: models.EventGameUpdate, Payload: gameUpdate{
			GroupID: p.GroupID,
			GameID:  p.GameID,
			UserID:  client.info.UserID,
			Move:    p.Move,
		}})

	case models.EventGameStateUpdate:
		if !h.joined(client, p.GroupID, log) {
			return
		}
		h.hub.Broadcast(p.GroupID, models.GroupEvent{Type: models.EventGameStateChanged, Payload: gameStateChanged{
			GroupID:   p.GroupID,
			GameState: p.GameState,
		}})

	case models.EventPlayerStatusUpdate:
		if !h.joined(client, p.GroupID, log) {
			return
		}
		if h.presence != nil {
			if err := h.presence.SetPlayerStatus(ctx, p.GroupID, client.info.UserID, p.Status); err != nil {
				log.WithError(err).Warn("store presence failed")
			}
		}
		h.hub.Broadcast(p.GroupID, models.GroupEvent{Type: models.EventPlayerStatusChange, Payload: playerStatusChanged{
			GroupID: p.GroupID,
			UserID:  client.info.UserID,
			Status:  p.Status,
		}})

	default:
		log.Warn("unknown relay event")
	}
}

func (h *Handler) joined(client *Client, groupID int, log *logrus.Entry) bool {
	if h.hub.InRoom(groupID, client) {
		return true
	}
	log.Warn("event for a room the connection has not joined")
	return false
}

func (h *Handler) clearPresence(groupID int, userID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := h.presence.ClearPlayerStatus(ctx, groupID, userID); err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Warn("clear presence failed")
	}
}
