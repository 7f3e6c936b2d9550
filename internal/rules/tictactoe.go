package rules

import "encoding/json"

var ticTacToeSymbols = []string{"X", "O", "△"}

var ticTacToeLines = [][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// TicTacToe is played on a 3x3 board by up to three symbols.
type TicTacToe struct {
	base
}

type ticTacToeState struct {
	Board [9]string `json:"board"`
}

type ticTacToeMove struct {
	Position *int `json:"position"`
}

func NewTicTacToe() *TicTacToe {
	return &TicTacToe{base{gameType: TypeTicTacToe}}
}

func (t *TicTacToe) Symbol(seat int) string {
	if seat < 0 || seat >= len(ticTacToeSymbols) {
		return ""
	}
	return ticTacToeSymbols[seat]
}

func (t *TicTacToe) InitialState() (json.RawMessage, error) {
	return json.Marshal(ticTacToeState{})
}

func (t *TicTacToe) ApplyMove(state json.RawMessage, players []Player, actor string, move json.RawMessage) (Outcome, error) {
	var s ticTacToeState
	if err := decodeState(state, &s); err != nil {
		return Outcome{}, err
	}
	var m ticTacToeMove
	if err := decodeMove(move, &m); err != nil {
		return Outcome{}, err
	}
	if m.Position == nil || *m.Position < 0 || *m.Position >= len(s.Board) {
		return Outcome{}, illegal("position must be between 0 and 8")
	}
	if s.Board[*m.Position] != "" {
		return Outcome{}, illegal("cell already taken")
	}

	seat := seatOf(players, actor)
	if seat < 0 {
		return Outcome{}, illegal("not a player")
	}
	symbol := players[seat].Symbol
	s.Board[*m.Position] = symbol

	for _, line := range ticTacToeLines {
		if s.Board[line[0]] == symbol && s.Board[line[1]] == symbol && s.Board[line[2]] == symbol {
			return finish(s, actor)
		}
	}
	for _, cell := range s.Board {
		if cell == "" {
			return continueWith(s, nextPlayer(players, actor))
		}
	}
	return finish(s, "")
}
