package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"groupgames-service/internal/models"
	"groupgames-service/internal/services"
	"groupgames-service/internal/telemetry"
)

// groupRooms is the part of the relay hub the group endpoints drive.
type groupRooms interface {
	broadcaster
	LeaveUser(groupID int, userID string) int
	RoomSize(groupID int) int
}

// GroupHandler manages group, membership, leaderboard and chat endpoints.
type GroupHandler struct {
	groups *services.GroupService
	hub    groupRooms
	audit  auditor
}

// NewGroupHandler constructs a GroupHandler. hub and audit may be nil.
func NewGroupHandler(groups *services.GroupService, hub groupRooms, audit auditor) *GroupHandler {
	return &GroupHandler{groups: groups, hub: hub, audit: audit}
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, telemetry.AuditRecord{Level: "ERROR", Action: "group.create", Text: "invalid request payload"})
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	group, err := h.groups.CreateGroup(c.Request.Context(), userID, services.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err, "Failed to create group")
		return
	}

	emitAudit(c, h.audit, telemetry.AuditRecord{Level: "INFO", Action: "group.create", Text: "Group created", GroupID: group.ID})
	c.JSON(http.StatusCreated, group)
}

// ListGroups handles GET /groups.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.ListUserGroups(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		writeError(c, err, "Failed to fetch groups")
		return
	}
	c.JSON(http.StatusOK, groups)
}

// GetGroup handles GET /groups/:id.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}
	group, err := h.groups.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, err, "Failed to fetch group")
		return
	}
	c.JSON(http.StatusOK, group)
}

// JoinGroup handles POST /groups/join/:inviteCode.
func (h *GroupHandler) JoinGroup(c *gin.Context) {
	group, err := h.groups.JoinGroup(c.Request.Context(), c.Param("inviteCode"), c.GetString("userID"))
	if err != nil {
		emitAudit(c, h.audit, telemetry.AuditRecord{Level: "ERROR", Action: "group.join", Text: clientMessage(err)})
		writeError(c, err, "Failed to join group")
		return
	}

	emitAudit(c, h.audit, telemetry.AuditRecord{Level: "INFO", Action: "group.join", Text: "Group joined", GroupID: group.ID})
	c.JSON(http.StatusOK, gin.H{"message": "Successfully joined group", "group": group})
}

// LeaveGroup handles DELETE /groups/:id/leave.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}
	userID := c.GetString("userID")
	if err := h.groups.LeaveGroup(c.Request.Context(), groupID, userID); err != nil {
		writeError(c, err, "Failed to leave group")
		return
	}
	if h.hub != nil {
		h.hub.LeaveUser(groupID, userID)
	}

	emitAudit(c, h.audit, telemetry.AuditRecord{Level: "INFO", Action: "group.leave", Text: "Group left", GroupID: groupID})
	c.JSON(http.StatusOK, gin.H{"message": "Left group successfully"})
}

// Presence handles GET /groups/:id/presence.
func (h *GroupHandler) Presence(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}
	statuses, err := h.groups.Presence(c.Request.Context(), groupID, c.GetString("userID"))
	if err != nil {
		writeError(c, err, "Failed to fetch presence")
		return
	}
	connections := 0
	if h.hub != nil {
		connections = h.hub.RoomSize(groupID)
	}
	c.JSON(http.StatusOK, gin.H{"groupId": groupID, "connections": connections, "statuses": statuses})
}

// ListMembers handles GET /groups/:id/members.
func (h *GroupHandler) ListMembers(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}
	members, err := h.groups.ListMembers(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, err, "Failed to fetch group members")
		return
	}
	c.JSON(http.StatusOK, members)
}

// Leaderboard handles GET /groups/:id/leaderboard.
func (h *GroupHandler) Leaderboard(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}
	entries, err := h.groups.Leaderboard(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, err, "Failed to fetch leaderboard")
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Stats handles GET /groups/:id/stats.
func (h *GroupHandler) Stats(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}
	stats, err := h.groups.GroupStats(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, err, "Failed to fetch stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetGroupMessages handles GET /groups/:id/messages.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}
	msgs, err := h.groups.ListMessages(c.Request.Context(), groupID, c.GetString("userID"))
	if err != nil {
		writeError(c, err, "Failed to fetch messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// PostGroupMessage handles POST /groups/:id/messages and broadcasts the stored
// message to the group room.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	msg, err := h.groups.PostMessage(c.Request.Context(), groupID, c.GetString("userID"), req.Message)
	if err != nil {
		writeError(c, err, "Failed to send message")
		return
	}

	if h.hub != nil {
		h.hub.Broadcast(groupID, models.GroupEvent{Type: models.EventNewMessage, Payload: msg})
	}
	c.JSON(http.StatusCreated, msg)
}
