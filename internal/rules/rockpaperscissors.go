package rules

import (
	"encoding/json"
	"sort"
	"strings"
)

var beats = map[string]string{
	"rock":     "scissors",
	"paper":    "rock",
	"scissors": "paper",
}

// RockPaperScissors collects one hidden choice per player, then resolves.
// A single player holding the only winning choice wins; anything else draws.
type RockPaperScissors struct {
	base
}

type rpsState struct {
	Choices  map[string]string `json:"choices"`
	Revealed bool              `json:"revealed"`
}

// rpsPublicState lists who has picked without saying what, until revealed.
type rpsPublicState struct {
	Choices  map[string]string `json:"choices"`
	Picked   []string          `json:"picked"`
	Revealed bool              `json:"revealed"`
}

type rpsMove struct {
	Choice string `json:"choice"`
}

func NewRockPaperScissors() *RockPaperScissors {
	return &RockPaperScissors{base{gameType: TypeRockPaperScissors}}
}

func (r *RockPaperScissors) InitialState() (json.RawMessage, error) {
	return json.Marshal(rpsState{Choices: map[string]string{}})
}

func (r *RockPaperScissors) ApplyMove(state json.RawMessage, players []Player, actor string, move json.RawMessage) (Outcome, error) {
	s := rpsState{Choices: map[string]string{}}
	if err := decodeState(state, &s); err != nil {
		return Outcome{}, err
	}
	if s.Choices == nil {
		s.Choices = map[string]string{}
	}
	var m rpsMove
	if err := decodeMove(move, &m); err != nil {
		return Outcome{}, err
	}
	choice := strings.ToLower(strings.TrimSpace(m.Choice))
	if _, ok := beats[choice]; !ok {
		return Outcome{}, illegal("choice must be rock, paper or scissors")
	}
	if _, done := s.Choices[actor]; done {
		return Outcome{}, illegal("choice already made")
	}
	s.Choices[actor] = choice

	if len(s.Choices) < len(players) {
		return continueWith(s, nextPlayer(players, actor))
	}

	s.Revealed = true
	return finish(s, rpsWinner(players, s.Choices))
}

// PublicState withholds choices until every player has picked.
func (r *RockPaperScissors) PublicState(state json.RawMessage) json.RawMessage {
	var s rpsState
	if err := decodeState(state, &s); err != nil {
		return nil
	}
	view := rpsPublicState{Choices: map[string]string{}, Picked: make([]string, 0, len(s.Choices)), Revealed: s.Revealed}
	for userID, choice := range s.Choices {
		view.Picked = append(view.Picked, userID)
		if s.Revealed {
			view.Choices[userID] = choice
		}
	}
	sort.Strings(view.Picked)
	raw, err := json.Marshal(view)
	if err != nil {
		return nil
	}
	return raw
}

func rpsWinner(players []Player, choices map[string]string) string {
	distinct := map[string]bool{}
	for _, p := range players {
		distinct[choices[p.UserID]] = true
	}
	if len(distinct) != 2 {
		return ""
	}

	var winning string
	for c := range distinct {
		if distinct[beats[c]] {
			winning = c
		}
	}

	winner := ""
	for _, p := range players {
		if choices[p.UserID] != winning {
			continue
		}
		if winner != "" {
			return ""
		}
		winner = p.UserID
	}
	return winner
}
