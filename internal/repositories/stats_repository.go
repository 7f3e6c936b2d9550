package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"groupgames-service/internal/models"
)

// StatsRepository reads per-group player statistics.
type StatsRepository interface {
	ListGroupStats(ctx context.Context, groupID int) ([]models.PlayerStats, error)
}

// StatsRepo is a sqlx implementation of StatsRepository.
type StatsRepo struct {
	db *sqlx.DB
}

// NewStatsRepo constructs a StatsRepo.
func NewStatsRepo(db *sqlx.DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// ListGroupStats returns every stats row recorded for the group.
func (r *StatsRepo) ListGroupStats(ctx context.Context, groupID int) ([]models.PlayerStats, error) {
	stats := []models.PlayerStats{}
	err := r.db.SelectContext(ctx, &stats, `SELECT id, user_id, group_id, game_type, wins, losses, draws, total_games
        FROM player_stats WHERE group_id=$1 ORDER BY user_id ASC, game_type ASC`, groupID)
	return stats, err
}

// applyStatDelta creates the stats row on first completion and increments it afterwards.
func applyStatDelta(ctx context.Context, tx *sqlx.Tx, delta models.StatDelta) error {
	var wins, losses, draws int
	switch delta.Result {
	case models.ResultWin:
		wins = 1
	case models.ResultLoss:
		losses = 1
	case models.ResultDraw:
		draws = 1
	default:
		return fmt.Errorf("unknown result %q", delta.Result)
	}

	_, err := tx.ExecContext(ctx, `INSERT INTO player_stats (user_id, group_id, game_type, wins, losses, draws, total_games)
        VALUES ($1, $2, $3, $4, $5, $6, 1)
        ON CONFLICT (user_id, group_id, game_type) DO UPDATE SET
            wins = player_stats.wins + EXCLUDED.wins,
            losses = player_stats.losses + EXCLUDED.losses,
            draws = player_stats.draws + EXCLUDED.draws,
            total_games = player_stats.total_games + 1`,
		delta.UserID, delta.GroupID, delta.GameType, wins, losses, draws)
	return err
}
