// Package rules holds the per-game-type move logic behind a static registry.
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"groupgames-service/internal/models"
)

// Supported game types.
const (
	TypeChess             = "chess"
	TypeTicTacToe         = "tic-tac-toe"
	TypeRockPaperScissors = "rock-paper-scissors"
	TypeCoinToss          = "coin-toss"
	TypeWordBattle        = "word-battle"
	TypeTypingChallenge   = "typing-challenge"
)

var (
	ErrIllegalMove     = errors.New("illegal move")
	ErrUnknownGameType = errors.New("unknown game type")
)

// Player is a seated (non-spectator) participant.
type Player struct {
	UserID string
	Symbol string
}

// Outcome is the result of applying one move.
type Outcome struct {
	State    json.RawMessage `json:"gameState"`
	NextTurn *string         `json:"nextTurn"`
	Status   string          `json:"status"`
	WinnerID *string         `json:"winnerId"`
}

// Rule implements one game type. ApplyMove receives the seated players in seat
// order and owns legality, turn rotation and win/draw detection. PublicState
// returns the view of a stored state that players may see; only it leaves the
// server.
type Rule interface {
	Type() string
	MaxPlayers() int
	MinPlayers() int
	Symbol(seat int) string
	InitialState() (json.RawMessage, error)
	ApplyMove(state json.RawMessage, players []Player, actor string, move json.RawMessage) (Outcome, error)
	PublicState(state json.RawMessage) json.RawMessage
}

// Limits is a game type's seat capacity.
type Limits struct {
	Max int `json:"max"`
	Min int `json:"min"`
}

// Capacity returns the seat limits for a game type. Unknown types get the
// default three seats with two needed to start.
func Capacity(gameType string) Limits {
	if gameType == TypeChess {
		return Limits{Max: 2, Min: 2}
	}
	return Limits{Max: 3, Min: 2}
}

// Registry maps game type tags to rules. It is built once at startup.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry builds a registry, rejecting duplicate tags.
func NewRegistry(rules ...Rule) (*Registry, error) {
	reg := &Registry{rules: make(map[string]Rule, len(rules))}
	for _, r := range rules {
		if _, dup := reg.rules[r.Type()]; dup {
			return nil, fmt.Errorf("duplicate rule for %q", r.Type())
		}
		reg.rules[r.Type()] = r
	}
	return reg, nil
}

// DefaultRegistry registers every built-in game type.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(
		NewChess(),
		NewTicTacToe(),
		NewRockPaperScissors(),
		NewCoinToss(nil),
		NewWordBattle(),
		NewTypingChallenge(nil),
	)
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup resolves a game type tag.
func (r *Registry) Lookup(gameType string) (Rule, error) {
	rule, ok := r.rules[gameType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGameType, gameType)
	}
	return rule, nil
}

// Types lists the registered tags in sorted order.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.rules))
	for t := range r.rules {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// base carries the capacity and default "playerN" seat naming.
type base struct {
	gameType string
}

func (b base) Type() string    { return b.gameType }
func (b base) MaxPlayers() int { return Capacity(b.gameType).Max }
func (b base) MinPlayers() int { return Capacity(b.gameType).Min }

func (b base) Symbol(seat int) string {
	if seat < 0 || seat >= b.MaxPlayers() {
		return ""
	}
	return fmt.Sprintf("player%d", seat+1)
}

func (b base) InitialState() (json.RawMessage, error) {
	return nil, nil
}

func (b base) PublicState(state json.RawMessage) json.RawMessage {
	return state
}

// nextPlayer returns the seat after actor, wrapping around.
func nextPlayer(players []Player, actor string) string {
	for i, p := range players {
		if p.UserID == actor {
			return players[(i+1)%len(players)].UserID
		}
	}
	return players[0].UserID
}

func seatOf(players []Player, actor string) int {
	for i, p := range players {
		if p.UserID == actor {
			return i
		}
	}
	return -1
}

func continueWith(state any, next string) (Outcome, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{State: raw, NextTurn: &next, Status: models.GameStatusActive}, nil
}

func finish(state any, winner string) (Outcome, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{State: raw, Status: models.GameStatusCompleted}
	if winner != "" {
		out.WinnerID = &winner
	}
	return out, nil
}

func decodeState(state json.RawMessage, v any) error {
	if len(state) == 0 || string(state) == "null" {
		return nil
	}
	return json.Unmarshal(state, v)
}

func decodeMove(move json.RawMessage, v any) error {
	if err := json.Unmarshal(move, v); err != nil {
		return fmt.Errorf("%w: malformed move", ErrIllegalMove)
	}
	return nil
}

func illegal(reason string) error {
	return fmt.Errorf("%w: %s", ErrIllegalMove, reason)
}

// uniqueBest returns the only player holding the top score, or "" on a tie.
func uniqueBest[T int | float64](players []Player, scores map[string]T) string {
	best := ""
	var top T
	tied := false
	for _, p := range players {
		s := scores[p.UserID]
		switch {
		case best == "" || s > top:
			best, top, tied = p.UserID, s, false
		case s == top:
			tied = true
		}
	}
	if tied {
		return ""
	}
	return best
}
