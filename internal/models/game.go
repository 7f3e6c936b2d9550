package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Game statuses.
const (
	GameStatusWaiting   = "waiting"
	GameStatusActive    = "active"
	GameStatusCompleted = "completed"
)

// Game is one play session bound to a group.
type Game struct {
	ID          int       `db:"id" json:"id"`
	GroupID     int       `db:"group_id" json:"groupId"`
	GameType    string    `db:"game_type" json:"gameType"`
	Status      string    `db:"status" json:"status"`
	CurrentTurn *string   `db:"current_turn" json:"currentTurn"`
	GameState   JSONB     `db:"game_state" json:"gameState"`
	WinnerID    *string   `db:"winner_id" json:"winnerId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// IsOpen reports whether the game still counts as the group's active game.
func (g Game) IsOpen() bool {
	return g.Status == GameStatusWaiting || g.Status == GameStatusActive
}

// IsDraw reports a completed game without a winner.
func (g Game) IsDraw() bool {
	return g.Status == GameStatusCompleted && g.WinnerID == nil
}

// GameParticipant is a user seated in, or watching, a game.
type GameParticipant struct {
	ID           int       `db:"id" json:"id"`
	GameID       int       `db:"game_id" json:"gameId"`
	UserID       string    `db:"user_id" json:"userId"`
	PlayerSymbol *string   `db:"player_symbol" json:"playerSymbol"`
	IsSpectator  bool      `db:"is_spectator" json:"isSpectator"`
	JoinedAt     time.Time `db:"joined_at" json:"joinedAt"`
}

// GameDetails is a game with its participants.
type GameDetails struct {
	Game
	Participants []GameParticipant `json:"participants"`
}

// JSONB holds a raw JSON document stored in a jsonb column.
type JSONB []byte

// Value implements driver.Valuer.
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSONB) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONB(v)
	default:
		return errors.New("jsonb: unsupported scan type")
	}
	return nil
}

// MarshalJSON emits the raw document, or null when empty.
func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON stores a copy of the raw document.
func (j *JSONB) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], data...)
	return nil
}

// GameAction is the record appended to the action log after every move.
type GameAction struct {
	GameID    int             `json:"gameId"`
	GroupID   int             `json:"groupId"`
	GameType  string          `json:"gameType"`
	UserID    string          `json:"userId"`
	Move      json.RawMessage `json:"move"`
	Status    string          `json:"status"`
	WinnerID  *string         `json:"winnerId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
