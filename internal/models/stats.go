package models

// PlayerStats holds cumulative results per (user, group, game type).
type PlayerStats struct {
	ID         int    `db:"id" json:"id"`
	UserID     string `db:"user_id" json:"userId"`
	GroupID    int    `db:"group_id" json:"groupId"`
	GameType   string `db:"game_type" json:"gameType"`
	Wins       int    `db:"wins" json:"wins"`
	Losses     int    `db:"losses" json:"losses"`
	Draws      int    `db:"draws" json:"draws"`
	TotalGames int    `db:"total_games" json:"totalGames"`
}

// Result is one participant's result for a finished game.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

// StatDelta is the increment applied to a PlayerStats row when a game completes.
type StatDelta struct {
	UserID   string
	GroupID  int
	GameType string
	Result   Result
}
