package rules

import (
	"encoding/json"
	"math"
	"math/rand/v2"
)

var typingPrompts = []string{
	"the quick brown fox jumps over the lazy dog",
	"pack my box with five dozen liquor jugs",
	"how vexingly quick daft zebras jump",
	"sphinx of black quartz judge my vow",
	"a journey of a thousand miles begins with a single step",
}

// TypingChallenge gives every player the same prompt; each submits once.
// Score is correctly typed characters per second and the best score wins.
type TypingChallenge struct {
	base
	pick func() string
}

type typingResult struct {
	Text      string  `json:"text"`
	ElapsedMs int     `json:"elapsedMs"`
	Correct   int     `json:"correct"`
	Score     float64 `json:"score"`
}

type typingState struct {
	Prompt  string                  `json:"prompt"`
	Results map[string]typingResult `json:"results"`
}

type typingMove struct {
	Text      string `json:"text"`
	ElapsedMs int    `json:"elapsedMs"`
}

// NewTypingChallenge builds the rule. A nil pick chooses a random prompt.
func NewTypingChallenge(pick func() string) *TypingChallenge {
	if pick == nil {
		pick = func() string { return typingPrompts[rand.IntN(len(typingPrompts))] }
	}
	return &TypingChallenge{base: base{gameType: TypeTypingChallenge}, pick: pick}
}

func (t *TypingChallenge) InitialState() (json.RawMessage, error) {
	return json.Marshal(typingState{Prompt: t.pick(), Results: map[string]typingResult{}})
}

func (t *TypingChallenge) ApplyMove(state json.RawMessage, players []Player, actor string, move json.RawMessage) (Outcome, error) {
	var s typingState
	if err := decodeState(state, &s); err != nil {
		return Outcome{}, err
	}
	if s.Prompt == "" {
		s.Prompt = t.pick()
	}
	if s.Results == nil {
		s.Results = map[string]typingResult{}
	}
	var m typingMove
	if err := decodeMove(move, &m); err != nil {
		return Outcome{}, err
	}
	if m.ElapsedMs <= 0 {
		return Outcome{}, illegal("elapsedMs must be positive")
	}
	if _, done := s.Results[actor]; done {
		return Outcome{}, illegal("already submitted")
	}

	correct := typedCorrectly(s.Prompt, m.Text)
	score := float64(correct) / (float64(m.ElapsedMs) / 1000)
	s.Results[actor] = typingResult{
		Text:      m.Text,
		ElapsedMs: m.ElapsedMs,
		Correct:   correct,
		Score:     math.Round(score*100) / 100,
	}

	if len(s.Results) < len(players) {
		return continueWith(s, nextPlayer(players, actor))
	}

	scores := make(map[string]float64, len(s.Results))
	for id, r := range s.Results {
		scores[id] = r.Score
	}
	return finish(s, uniqueBest(players, scores))
}

// typedCorrectly counts positions where the typed text matches the prompt.
func typedCorrectly(prompt, typed string) int {
	p, t := []rune(prompt), []rune(typed)
	n := 0
	for i := 0; i < len(p) && i < len(t); i++ {
		if p[i] == t[i] {
			n++
		}
	}
	return n
}
