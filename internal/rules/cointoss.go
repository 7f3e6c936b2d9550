package rules

import (
	"encoding/json"
	"math/rand/v2"
	"strings"
)

// CoinToss has every player call a side; the coin is flipped after the last
// call. The only correct caller wins, otherwise the game is a draw.
type CoinToss struct {
	base
	flip func() string
}

type coinTossState struct {
	Calls  map[string]string `json:"calls"`
	Result string            `json:"result,omitempty"`
}

type coinTossMove struct {
	Call string `json:"call"`
}

// NewCoinToss builds the rule. A nil flip uses a fair random coin.
func NewCoinToss(flip func() string) *CoinToss {
	if flip == nil {
		flip = func() string {
			if rand.IntN(2) == 0 {
				return "heads"
			}
			return "tails"
		}
	}
	return &CoinToss{base: base{gameType: TypeCoinToss}, flip: flip}
}

func (c *CoinToss) InitialState() (json.RawMessage, error) {
	return json.Marshal(coinTossState{Calls: map[string]string{}})
}

func (c *CoinToss) ApplyMove(state json.RawMessage, players []Player, actor string, move json.RawMessage) (Outcome, error) {
	var s coinTossState
	if err := decodeState(state, &s); err != nil {
		return Outcome{}, err
	}
	if s.Calls == nil {
		s.Calls = map[string]string{}
	}
	var m coinTossMove
	if err := decodeMove(move, &m); err != nil {
		return Outcome{}, err
	}
	call := strings.ToLower(strings.TrimSpace(m.Call))
	if call != "heads" && call != "tails" {
		return Outcome{}, illegal("call must be heads or tails")
	}
	if _, done := s.Calls[actor]; done {
		return Outcome{}, illegal("call already made")
	}
	s.Calls[actor] = call

	if len(s.Calls) < len(players) {
		return continueWith(s, nextPlayer(players, actor))
	}

	s.Result = c.flip()
	winner := ""
	for _, p := range players {
		if s.Calls[p.UserID] != s.Result {
			continue
		}
		if winner != "" {
			return finish(s, "")
		}
		winner = p.UserID
	}
	return finish(s, winner)
}
