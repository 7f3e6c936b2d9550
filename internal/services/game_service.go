package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"groupgames-service/internal/models"
	"groupgames-service/internal/observability"
	"groupgames-service/internal/repositories"
	"groupgames-service/internal/rules"
)

// ActionLog receives a record of every accepted move. Failures are logged and
// never fail the move.
type ActionLog interface {
	PushGameAction(ctx context.Context, action models.GameAction) error
}

// GameService runs the waiting -> active -> completed session state machine.
type GameService struct {
	games    repositories.GameRepository
	groups   repositories.GroupRepository
	registry *rules.Registry
	actions  ActionLog
	now      func() time.Time
}

// NewGameService constructs a GameService. actions may be nil.
func NewGameService(games repositories.GameRepository, groups repositories.GroupRepository, registry *rules.Registry, actions ActionLog) *GameService {
	return &GameService{
		games:    games,
		groups:   groups,
		registry: registry,
		actions:  actions,
		now:      time.Now,
	}
}

// JoinResult reports the caller's seat after JoinGame.
type JoinResult struct {
	Game          models.Game
	Participant   models.GameParticipant
	AlreadyJoined bool
}

// CreateGame opens a new game in the group with the creator in the first seat.
func (s *GameService) CreateGame(ctx context.Context, groupID int, creatorID, gameType string) (models.GameDetails, error) {
	rule, err := s.registry.Lookup(gameType)
	if err != nil {
		return models.GameDetails{}, fmt.Errorf("%w: unsupported game type %q", ErrValidation, gameType)
	}

	member, err := s.groups.IsMember(ctx, groupID, creatorID)
	if err != nil {
		return models.GameDetails{}, err
	}
	if !member {
		return models.GameDetails{}, ErrNotMember
	}

	state, err := rule.InitialState()
	if err != nil {
		return models.GameDetails{}, fmt.Errorf("initial state for %s: %w", gameType, err)
	}

	creator := creatorID
	symbol := rule.Symbol(0)
	game := models.Game{
		GroupID:     groupID,
		GameType:    gameType,
		Status:      models.GameStatusWaiting,
		CurrentTurn: &creator,
		GameState:   models.JSONB(state),
	}
	seat := models.GameParticipant{UserID: creatorID, PlayerSymbol: &symbol}

	details, err := s.games.CreateGame(ctx, game, seat)
	if err != nil {
		return models.GameDetails{}, repoError(err)
	}
	details.Game = s.visible(details.Game)
	return details, nil
}

// JoinGame seats the user, or adds them as a spectator once every seat is
// taken. Joining twice returns the existing participation.
func (s *GameService) JoinGame(ctx context.Context, gameID int, userID string) (JoinResult, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return JoinResult{}, repoError(err)
	}
	if err := s.requireMember(ctx, game.GroupID, userID); err != nil {
		return JoinResult{}, err
	}
	rule, err := s.registry.Lookup(game.GameType)
	if err != nil {
		return JoinResult{}, fmt.Errorf("%w: unsupported game type %q", ErrValidation, game.GameType)
	}

	var (
		result JoinResult
		change *repositories.GameChange
	)
	updated, err := s.games.MutateGame(ctx, gameID, func(g models.Game, participants []models.GameParticipant) (*repositories.GameChange, error) {
		planned, seat, already, err := planJoin(rule, g, participants, userID)
		if err != nil {
			return nil, err
		}
		change = planned
		result.Participant = seat
		result.AlreadyJoined = already
		return planned, nil
	})
	if errors.Is(err, repositories.ErrParticipantExists) {
		// lost a race with a concurrent join by the same user
		return s.existingSeat(ctx, gameID, userID)
	}
	if err != nil {
		return JoinResult{}, repoError(err)
	}
	if change != nil && change.Participant != nil {
		// MutateGame wrote the stored row back into the change
		result.Participant = *change.Participant
	}
	result.Game = s.visible(updated)
	return result, nil
}

func (s *GameService) existingSeat(ctx context.Context, gameID int, userID string) (JoinResult, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return JoinResult{}, repoError(err)
	}
	participants, err := s.games.ListParticipants(ctx, gameID)
	if err != nil {
		return JoinResult{}, err
	}
	for _, p := range participants {
		if p.UserID == userID {
			return JoinResult{Game: s.visible(game), Participant: p, AlreadyJoined: true}, nil
		}
	}
	return JoinResult{}, fmt.Errorf("%w: participant vanished", ErrConflict)
}

// planJoin decides the seat for userID against a locked snapshot of the game.
func planJoin(rule rules.Rule, game models.Game, participants []models.GameParticipant, userID string) (*repositories.GameChange, models.GameParticipant, bool, error) {
	for _, p := range participants {
		if p.UserID == userID {
			return nil, p, true, nil
		}
	}
	if game.Status == models.GameStatusCompleted {
		return nil, models.GameParticipant{}, false, fmt.Errorf("%w: game already completed", ErrConflict)
	}

	seated := 0
	for _, p := range participants {
		if !p.IsSpectator {
			seated++
		}
	}

	seat := models.GameParticipant{GameID: game.ID, UserID: userID}
	if seated >= rule.MaxPlayers() {
		seat.IsSpectator = true
	} else {
		symbol := rule.Symbol(seated)
		seat.PlayerSymbol = &symbol
		seated++
	}

	next := game
	if next.Status == models.GameStatusWaiting && seated >= rule.MinPlayers() {
		next.Status = models.GameStatusActive
	}
	return &repositories.GameChange{Game: next, Participant: &seat}, seat, false, nil
}

// MoveResult is the rule outcome together with the persisted game row.
type MoveResult struct {
	rules.Outcome
	Game models.Game
}

// MakeMove validates and applies a move by the player whose turn it is.
func (s *GameService) MakeMove(ctx context.Context, gameID int, userID string, move json.RawMessage) (MoveResult, error) {
	var outcome rules.Outcome
	updated, err := s.games.MutateGame(ctx, gameID, func(g models.Game, participants []models.GameParticipant) (*repositories.GameChange, error) {
		rule, err := s.registry.Lookup(g.GameType)
		if err != nil {
			return nil, fmt.Errorf("%w: unsupported game type %q", ErrValidation, g.GameType)
		}
		change, out, err := planMove(rule, g, participants, userID, move)
		if err != nil {
			return nil, err
		}
		outcome = out
		return change, nil
	})
	if err != nil {
		return MoveResult{}, repoError(err)
	}

	observability.IncGameMove(updated.GameType)
	if updated.Status == models.GameStatusCompleted {
		result := "win"
		if updated.IsDraw() {
			result = "draw"
		}
		observability.IncGameCompleted(updated.GameType, result)
		logrus.WithFields(logrus.Fields{
			"game_id":   updated.ID,
			"group_id":  updated.GroupID,
			"game_type": updated.GameType,
			"result":    result,
		}).Info("game completed")
	}
	s.recordAction(ctx, updated, userID, move)
	visible := s.visible(updated)
	outcome.State = json.RawMessage(visible.GameState)
	return MoveResult{Outcome: outcome, Game: visible}, nil
}

// planMove applies move to a locked snapshot and returns the resulting writes.
func planMove(rule rules.Rule, game models.Game, participants []models.GameParticipant, userID string, move json.RawMessage) (*repositories.GameChange, rules.Outcome, error) {
	if game.Status != models.GameStatusActive {
		return nil, rules.Outcome{}, fmt.Errorf("%w: game is not active", ErrConflict)
	}
	if game.CurrentTurn == nil || *game.CurrentTurn != userID {
		return nil, rules.Outcome{}, fmt.Errorf("%w: not your turn", ErrForbidden)
	}

	players := seatedPlayers(participants)
	outcome, err := rule.ApplyMove(json.RawMessage(game.GameState), players, userID, move)
	if err != nil {
		if errors.Is(err, rules.ErrIllegalMove) {
			return nil, rules.Outcome{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return nil, rules.Outcome{}, err
	}

	next := game
	next.Status = outcome.Status
	next.CurrentTurn = outcome.NextTurn
	next.GameState = models.JSONB(outcome.State)
	next.WinnerID = outcome.WinnerID

	change := &repositories.GameChange{Game: next}
	if outcome.Status == models.GameStatusCompleted {
		change.Stats = statDeltas(game, players, outcome.WinnerID)
	}
	return change, outcome, nil
}

func seatedPlayers(participants []models.GameParticipant) []rules.Player {
	players := make([]rules.Player, 0, len(participants))
	for _, p := range participants {
		if p.IsSpectator {
			continue
		}
		symbol := ""
		if p.PlayerSymbol != nil {
			symbol = *p.PlayerSymbol
		}
		players = append(players, rules.Player{UserID: p.UserID, Symbol: symbol})
	}
	return players
}

// statDeltas credits every seated player with a win, loss or draw.
func statDeltas(game models.Game, players []rules.Player, winnerID *string) []models.StatDelta {
	deltas := make([]models.StatDelta, 0, len(players))
	for _, p := range players {
		result := models.ResultDraw
		if winnerID != nil {
			result = models.ResultLoss
			if *winnerID == p.UserID {
				result = models.ResultWin
			}
		}
		deltas = append(deltas, models.StatDelta{
			UserID:   p.UserID,
			GroupID:  game.GroupID,
			GameType: game.GameType,
			Result:   result,
		})
	}
	return deltas
}

func (s *GameService) recordAction(ctx context.Context, game models.Game, userID string, move json.RawMessage) {
	if s.actions == nil {
		return
	}
	action := models.GameAction{
		GameID:    game.ID,
		GroupID:   game.GroupID,
		GameType:  game.GameType,
		UserID:    userID,
		Move:      move,
		Status:    game.Status,
		WinnerID:  game.WinnerID,
		Timestamp: s.now().UTC(),
	}
	if err := s.actions.PushGameAction(ctx, action); err != nil {
		logrus.WithError(err).WithField("game_id", game.ID).Warn("failed to record game action")
	}
}

// GetGame returns a game with its participants.
func (s *GameService) GetGame(ctx context.Context, gameID int) (models.GameDetails, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return models.GameDetails{}, repoError(err)
	}
	return s.withParticipants(ctx, game)
}

// GetActiveGame returns the group's open game, or nil when there is none.
func (s *GameService) GetActiveGame(ctx context.Context, groupID int) (*models.GameDetails, error) {
	game, err := s.games.GetActiveGame(ctx, groupID)
	if err != nil || game == nil {
		return nil, err
	}
	details, err := s.withParticipants(ctx, *game)
	if err != nil {
		return nil, err
	}
	return &details, nil
}

func (s *GameService) withParticipants(ctx context.Context, game models.Game) (models.GameDetails, error) {
	participants, err := s.games.ListParticipants(ctx, game.ID)
	if err != nil {
		return models.GameDetails{}, err
	}
	return models.GameDetails{Game: s.visible(game), Participants: participants}, nil
}

// visible swaps the stored state for the view the game's rule lets players see.
func (s *GameService) visible(game models.Game) models.Game {
	rule, err := s.registry.Lookup(game.GameType)
	if err != nil {
		return game
	}
	game.GameState = models.JSONB(rule.PublicState(json.RawMessage(game.GameState)))
	return game
}

func (s *GameService) requireMember(ctx context.Context, groupID int, userID string) error {
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	return nil
}

// GameTypes lists the registered game types.
func (s *GameService) GameTypes() []string {
	return s.registry.Types()
}
