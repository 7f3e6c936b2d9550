package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"groupgames-service/internal/models"
	"groupgames-service/internal/services"
	"groupgames-service/internal/telemetry"
)

// GameHandler manages game session endpoints.
type GameHandler struct {
	games *services.GameService
	hub   broadcaster
	audit auditor
}

// NewGameHandler constructs a GameHandler. hub and audit may be nil.
func NewGameHandler(games *services.GameService, hub broadcaster, audit auditor) *GameHandler {
	return &GameHandler{games: games, hub: hub, audit: audit}
}

// gameStateEvent is pushed to the room after a server-side state change. It
// uses its own event name so relayed client frames cannot pass for it.
type gameStateEvent struct {
	GroupID     int          `json:"groupId"`
	GameID      int          `json:"gameId"`
	GameState   models.JSONB `json:"gameState"`
	Status      string       `json:"status"`
	CurrentTurn *string      `json:"currentTurn"`
	WinnerID    *string      `json:"winnerId"`
}

func (h *GameHandler) broadcastState(game models.Game) {
	if h.hub == nil {
		return
	}
	h.hub.Broadcast(game.GroupID, models.GroupEvent{Type: models.EventGameSessionUpdated, Payload: gameStateEvent{
		GroupID:     game.GroupID,
		GameID:      game.ID,
		GameState:   game.GameState,
		Status:      game.Status,
		CurrentTurn: game.CurrentTurn,
		WinnerID:    game.WinnerID,
	}})
}

// CreateGame handles POST /games.
func (h *GameHandler) CreateGame(c *gin.Context) {
	var req struct {
		GroupID  int    `json:"groupId" binding:"required"`
		GameType string `json:"gameType" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	details, err := h.games.CreateGame(c.Request.Context(), req.GroupID, c.GetString("userID"), req.GameType)
	if err != nil {
		writeError(c, err, "Failed to create game")
		return
	}

	emitAudit(c, h.audit, telemetry.AuditRecord{
		Level: "INFO", Action: "game.create", Text: "Game created: " + details.GameType,
		GroupID: details.GroupID, GameID: details.ID,
	})
	h.broadcastState(details.Game)
	c.JSON(http.StatusCreated, details)
}

// GetGame handles GET /games/:id.
func (h *GameHandler) GetGame(c *gin.Context) {
	gameID, ok := paramID(c, "id", "game")
	if !ok {
		return
	}
	details, err := h.games.GetGame(c.Request.Context(), gameID)
	if err != nil {
		writeError(c, err, "Failed to fetch game")
		return
	}
	c.JSON(http.StatusOK, details)
}

// JoinGame handles POST /games/:id/join.
func (h *GameHandler) JoinGame(c *gin.Context) {
	gameID, ok := paramID(c, "id", "game")
	if !ok {
		return
	}
	result, err := h.games.JoinGame(c.Request.Context(), gameID, c.GetString("userID"))
	if err != nil {
		writeError(c, err, "Failed to join game")
		return
	}

	if result.AlreadyJoined {
		c.JSON(http.StatusOK, gin.H{"message": "Already joined", "participant": result.Participant})
		return
	}
	h.broadcastState(result.Game)
	c.JSON(http.StatusOK, gin.H{"message": "Joined game successfully", "participant": result.Participant})
}

// MakeMove handles POST /games/:id/move.
func (h *GameHandler) MakeMove(c *gin.Context) {
	gameID, ok := paramID(c, "id", "game")
	if !ok {
		return
	}

	var req struct {
		Move json.RawMessage `json:"move" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	result, err := h.games.MakeMove(c.Request.Context(), gameID, c.GetString("userID"), req.Move)
	if err != nil {
		writeError(c, err, "Failed to make move")
		return
	}

	if result.Game.Status == models.GameStatusCompleted {
		text := "Game completed: draw"
		if result.WinnerID != nil {
			text = "Game completed: winner " + *result.WinnerID
		}
		emitAudit(c, h.audit, telemetry.AuditRecord{
			Level: "INFO", Action: "game.complete", Text: text,
			GroupID: result.Game.GroupID, GameID: result.Game.ID,
		})
	}
	h.broadcastState(result.Game)
	c.JSON(http.StatusOK, result.Outcome)
}

// GetActiveGame handles GET /groups/:id/active-game and answers null when the
// group has no open game.
func (h *GameHandler) GetActiveGame(c *gin.Context) {
	groupID, ok := paramID(c, "id", "group")
	if !ok {
		return
	}
	details, err := h.games.GetActiveGame(c.Request.Context(), groupID)
	if err != nil {
		writeError(c, err, "Failed to fetch active game")
		return
	}
	c.JSON(http.StatusOK, details)
}

// ListGameTypes handles GET /games/types.
func (h *GameHandler) ListGameTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.games.GameTypes())
}
