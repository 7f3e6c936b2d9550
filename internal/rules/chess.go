package rules

import (
	"encoding/json"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Chess delegates move legality and outcomes to corentings/chess. The state
// keeps the UCI move list and the game is replayed from the start position.
type Chess struct {
	base
}

type chessState struct {
	FEN   string   `json:"fen"`
	Moves []string `json:"moves"`
	SAN   []string `json:"san"`
}

type chessMove struct {
	Move string `json:"move"`
}

func NewChess() *Chess {
	return &Chess{base{gameType: TypeChess}}
}

func (c *Chess) Symbol(seat int) string {
	switch seat {
	case 0:
		return "white"
	case 1:
		return "black"
	default:
		return ""
	}
}

func (c *Chess) InitialState() (json.RawMessage, error) {
	return json.Marshal(chessState{FEN: nchess.NewGame().FEN(), Moves: []string{}, SAN: []string{}})
}

func (c *Chess) ApplyMove(state json.RawMessage, players []Player, actor string, move json.RawMessage) (Outcome, error) {
	var s chessState
	if err := decodeState(state, &s); err != nil {
		return Outcome{}, err
	}
	var m chessMove
	if err := decodeMove(move, &m); err != nil {
		return Outcome{}, err
	}
	notation := strings.TrimSpace(m.Move)
	if notation == "" {
		return Outcome{}, illegal("empty move")
	}

	game := nchess.NewGame()
	for _, mv := range s.Moves {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return Outcome{}, illegal("corrupt move history")
		}
	}

	seat := seatOf(players, actor)
	if seat < 0 {
		return Outcome{}, illegal("not a player")
	}
	turn := "white"
	if game.Position().Turn() == nchess.Black {
		turn = "black"
	}
	if players[seat].Symbol != turn {
		return Outcome{}, illegal("it is " + turn + "'s move")
	}

	pos := game.Position()
	if err := game.PushNotationMove(strings.ToLower(notation), nchess.UCINotation{}, nil); err != nil {
		if err := game.PushNotationMove(notation, nchess.AlgebraicNotation{}, nil); err != nil {
			return Outcome{}, illegal("invalid chess move " + notation)
		}
	}
	moves := game.Moves()
	last := moves[len(moves)-1]
	s.Moves = append(s.Moves, last.String())
	s.SAN = append(s.SAN, nchess.AlgebraicNotation{}.Encode(pos, last))
	s.FEN = game.FEN()

	switch game.Outcome() {
	case nchess.WhiteWon:
		return finish(s, playerWithSymbol(players, "white"))
	case nchess.BlackWon:
		return finish(s, playerWithSymbol(players, "black"))
	case nchess.Draw:
		return finish(s, "")
	}
	return continueWith(s, nextPlayer(players, actor))
}

func playerWithSymbol(players []Player, symbol string) string {
	for _, p := range players {
		if p.Symbol == symbol {
			return p.UserID
		}
	}
	return ""
}
