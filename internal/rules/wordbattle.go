package rules

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

const wordBattleRounds = 3

// WordBattle runs a fixed number of rounds. Each turn plays one unused word
// and scores its length; the highest total wins.
type WordBattle struct {
	base
}

type wordBattleState struct {
	Round  int                 `json:"round"`
	Turns  int                 `json:"turns"`
	Words  map[string][]string `json:"words"`
	Scores map[string]int      `json:"scores"`
	Used   []string            `json:"used"`
}

type wordBattleMove struct {
	Word string `json:"word"`
}

func NewWordBattle() *WordBattle {
	return &WordBattle{base{gameType: TypeWordBattle}}
}

func (w *WordBattle) InitialState() (json.RawMessage, error) {
	return json.Marshal(newWordBattleState())
}

func newWordBattleState() wordBattleState {
	return wordBattleState{Round: 1, Words: map[string][]string{}, Scores: map[string]int{}, Used: []string{}}
}

func (w *WordBattle) ApplyMove(state json.RawMessage, players []Player, actor string, move json.RawMessage) (Outcome, error) {
	s := newWordBattleState()
	if err := decodeState(state, &s); err != nil {
		return Outcome{}, err
	}
	if s.Words == nil {
		s.Words = map[string][]string{}
	}
	if s.Scores == nil {
		s.Scores = map[string]int{}
	}
	var m wordBattleMove
	if err := decodeMove(move, &m); err != nil {
		return Outcome{}, err
	}

	word := strings.ToLower(strings.TrimSpace(m.Word))
	if utf8.RuneCountInString(word) < 2 {
		return Outcome{}, illegal("word must have at least two letters")
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return Outcome{}, illegal("word must contain letters only")
		}
	}
	for _, used := range s.Used {
		if used == word {
			return Outcome{}, illegal("word already played")
		}
	}

	s.Used = append(s.Used, word)
	s.Words[actor] = append(s.Words[actor], word)
	s.Scores[actor] += utf8.RuneCountInString(word)
	s.Turns++

	if s.Turns >= wordBattleRounds*len(players) {
		return finish(s, uniqueBest(players, s.Scores))
	}
	s.Round = s.Turns/len(players) + 1
	return continueWith(s, nextPlayer(players, actor))
}
