package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"groupgames-service/internal/models"
	"groupgames-service/internal/repositories"
)

// memGames is an in-memory GameRepository that applies mutations the same way
// the SQL repository does.
type memGames struct {
	mu      sync.Mutex
	nextID  int
	nextPID int
	games   map[int]models.Game
	parts   map[int][]models.GameParticipant
	deltas  []models.StatDelta
}

func newMemGames() *memGames {
	return &memGames{games: map[int]models.Game{}, parts: map[int][]models.GameParticipant{}}
}

var _ repositories.GameRepository = (*memGames)(nil)

func (m *memGames) CreateGame(_ context.Context, game models.Game, creator models.GameParticipant) (models.GameDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.games {
		if g.GroupID == game.GroupID && g.IsOpen() {
			return models.GameDetails{}, repositories.ErrActiveGameExists
		}
	}
	m.nextID++
	game.ID = m.nextID
	m.games[game.ID] = game
	seat := m.seat(game.ID, creator)
	return models.GameDetails{Game: game, Participants: []models.GameParticipant{seat}}, nil
}

func (m *memGames) seat(gameID int, p models.GameParticipant) models.GameParticipant {
	m.nextPID++
	p.ID = m.nextPID
	p.GameID = gameID
	p.JoinedAt = time.Now()
	m.parts[gameID] = append(m.parts[gameID], p)
	return p
}

func (m *memGames) GetGame(_ context.Context, gameID int) (models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	game, ok := m.games[gameID]
	if !ok {
		return models.Game{}, repositories.ErrGameNotFound
	}
	return game, nil
}

func (m *memGames) ListParticipants(_ context.Context, gameID int) ([]models.GameParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.GameParticipant{}, m.parts[gameID]...), nil
}

func (m *memGames) GetActiveGame(_ context.Context, groupID int) (*models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.games))
	for id := range m.games {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	for _, id := range ids {
		if g := m.games[id]; g.GroupID == groupID && g.IsOpen() {
			return &g, nil
		}
	}
	return nil, nil
}

func (m *memGames) MutateGame(_ context.Context, gameID int, fn repositories.GameMutation) (models.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	game, ok := m.games[gameID]
	if !ok {
		return models.Game{}, repositories.ErrGameNotFound
	}
	change, err := fn(game, append([]models.GameParticipant{}, m.parts[gameID]...))
	if err != nil {
		return models.Game{}, err
	}
	if change == nil {
		return game, nil
	}
	if change.Participant != nil {
		for _, p := range m.parts[gameID] {
			if p.UserID == change.Participant.UserID {
				return models.Game{}, repositories.ErrParticipantExists
			}
		}
		*change.Participant = m.seat(gameID, *change.Participant)
	}
	next := change.Game
	next.ID = gameID
	m.games[gameID] = next
	m.deltas = append(m.deltas, change.Stats...)
	return next, nil
}
