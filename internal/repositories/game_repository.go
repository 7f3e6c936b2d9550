package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"groupgames-service/internal/models"
)

var (
	ErrGameNotFound      = errors.New("game not found")
	ErrActiveGameExists  = errors.New("group already has an active game")
	ErrParticipantExists = errors.New("user already participates in game")
)

// GameChange describes the writes produced by a GameMutation. After a
// successful MutateGame, Participant holds the stored row.
type GameChange struct {
	Game        models.Game
	Participant *models.GameParticipant
	Stats       []models.StatDelta
}

// GameMutation inspects a locked game and its participants and returns the
// writes to apply. Returning a nil change leaves the game untouched; returning
// an error aborts the transaction.
type GameMutation func(game models.Game, participants []models.GameParticipant) (*GameChange, error)

// GameRepository abstracts game session persistence.
type GameRepository interface {
	CreateGame(ctx context.Context, game models.Game, creator models.GameParticipant) (models.GameDetails, error)
	GetGame(ctx context.Context, gameID int) (models.Game, error)
	ListParticipants(ctx context.Context, gameID int) ([]models.GameParticipant, error)
	GetActiveGame(ctx context.Context, groupID int) (*models.Game, error)
	MutateGame(ctx context.Context, gameID int, fn GameMutation) (models.Game, error)
}

// GameRepo is a sqlx implementation of GameRepository.
type GameRepo struct {
	db *sqlx.DB
}

// NewGameRepo constructs a GameRepo.
func NewGameRepo(db *sqlx.DB) *GameRepo {
	return &GameRepo{db: db}
}

const (
	gameColumns        = `id, group_id, game_type, status, current_turn, game_state, winner_id, created_at, updated_at`
	participantColumns = `id, game_id, user_id, player_symbol, is_spectator, joined_at`
)

// CreateGame inserts a game and its creator seat. The group row is locked so two
// concurrent creations serialize; the partial unique index on open games backs
// this up.
func (r *GameRepo) CreateGame(ctx context.Context, game models.Game, creator models.GameParticipant) (models.GameDetails, error) {
	var details models.GameDetails
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked int
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM groups WHERE id=$1 FOR UPDATE`, game.GroupID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrGroupNotFound
			}
			return err
		}

		var open bool
		if err := tx.GetContext(ctx, &open, `SELECT EXISTS(SELECT 1 FROM games WHERE group_id=$1 AND status IN ('waiting', 'active'))`, game.GroupID); err != nil {
			return err
		}
		if open {
			return ErrActiveGameExists
		}

		if err := tx.GetContext(ctx, &details.Game, `INSERT INTO games (group_id, game_type, status, current_turn, game_state)
            VALUES ($1, $2, $3, $4, $5) RETURNING `+gameColumns,
			game.GroupID, game.GameType, game.Status, game.CurrentTurn, game.GameState); err != nil {
			return err
		}

		participant, err := insertParticipant(ctx, tx, details.Game.ID, creator)
		if err != nil {
			return err
		}
		details.Participants = []models.GameParticipant{participant}
		return nil
	})
	if isUniqueViolation(err) {
		return models.GameDetails{}, ErrActiveGameExists
	}
	if err != nil {
		return models.GameDetails{}, err
	}
	return details, nil
}

// GetGame fetches a game by id.
func (r *GameRepo) GetGame(ctx context.Context, gameID int) (models.Game, error) {
	var game models.Game
	err := r.db.GetContext(ctx, &game, `SELECT `+gameColumns+` FROM games WHERE id=$1`, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Game{}, ErrGameNotFound
	}
	return game, err
}

// ListParticipants returns the game's participants in seat order.
func (r *GameRepo) ListParticipants(ctx context.Context, gameID int) ([]models.GameParticipant, error) {
	participants := []models.GameParticipant{}
	err := r.db.SelectContext(ctx, &participants, `SELECT `+participantColumns+` FROM game_participants WHERE game_id=$1 ORDER BY id ASC`, gameID)
	return participants, err
}

// GetActiveGame returns the group's most recent waiting or active game, or nil.
func (r *GameRepo) GetActiveGame(ctx context.Context, groupID int) (*models.Game, error) {
	var game models.Game
	err := r.db.GetContext(ctx, &game, `SELECT `+gameColumns+` FROM games
        WHERE group_id=$1 AND status IN ('waiting', 'active')
        ORDER BY created_at DESC, id DESC LIMIT 1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// MutateGame locks the game row, hands the current state to fn and persists the
// returned change (new participant, game row, stats) in the same transaction.
func (r *GameRepo) MutateGame(ctx context.Context, gameID int, fn GameMutation) (models.Game, error) {
	var result models.Game
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var game models.Game
		if err := tx.GetContext(ctx, &game, `SELECT `+gameColumns+` FROM games WHERE id=$1 FOR UPDATE`, gameID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrGameNotFound
			}
			return err
		}

		var participants []models.GameParticipant
		if err := tx.SelectContext(ctx, &participants, `SELECT `+participantColumns+` FROM game_participants WHERE game_id=$1 ORDER BY id ASC`, gameID); err != nil {
			return err
		}

		change, err := fn(game, participants)
		if err != nil {
			return err
		}
		if change == nil {
			result = game
			return nil
		}

		if change.Participant != nil {
			inserted, err := insertParticipant(ctx, tx, gameID, *change.Participant)
			if err != nil {
				if isUniqueViolation(err) {
					return ErrParticipantExists
				}
				return err
			}
			*change.Participant = inserted
		}

		next := change.Game
		if err := tx.GetContext(ctx, &result, `UPDATE games SET status=$2, current_turn=$3, game_state=$4, winner_id=$5, updated_at=NOW()
            WHERE id=$1 RETURNING `+gameColumns,
			gameID, next.Status, next.CurrentTurn, next.GameState, next.WinnerID); err != nil {
			return err
		}

		for _, delta := range change.Stats {
			if err := applyStatDelta(ctx, tx, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Game{}, err
	}
	return result, nil
}

func insertParticipant(ctx context.Context, tx *sqlx.Tx, gameID int, p models.GameParticipant) (models.GameParticipant, error) {
	var out models.GameParticipant
	err := tx.GetContext(ctx, &out, `INSERT INTO game_participants (game_id, user_id, player_symbol, is_spectator)
        VALUES ($1, $2, $3, $4) RETURNING `+participantColumns, gameID, p.UserID, p.PlayerSymbol, p.IsSpectator)
	return out, err
}
