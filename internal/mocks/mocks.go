package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"groupgames-service/internal/models"
	"groupgames-service/internal/repositories"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	args := m.Called(ctx, user)
	var out models.User
	if val := args.Get(0); val != nil {
		out = val.(models.User)
	}
	return out, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var out models.User
	if val := args.Get(0); val != nil {
		out = val.(models.User)
	}
	return out, args.Error(1)
}

type GroupRepositoryMock struct {
	mock.Mock
}

func (m *GroupRepositoryMock) CreateGroup(ctx context.Context, creatorID, name string, description *string, inviteCode string) (models.Group, error) {
	args := m.Called(ctx, creatorID, name, description, inviteCode)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	args := m.Called(ctx, groupID)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) GetGroupByInviteCode(ctx context.Context, inviteCode string) (models.Group, error) {
	args := m.Called(ctx, inviteCode)
	var group models.Group
	if val := args.Get(0); val != nil {
		group = val.(models.Group)
	}
	return group, args.Error(1)
}

func (m *GroupRepositoryMock) AddMember(ctx context.Context, groupID int, userID string, maxMembers int) error {
	args := m.Called(ctx, groupID, userID, maxMembers)
	return args.Error(0)
}

func (m *GroupRepositoryMock) RemoveMember(ctx context.Context, groupID int, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

func (m *GroupRepositoryMock) ListMembers(ctx context.Context, groupID int) ([]models.MemberProfile, error) {
	args := m.Called(ctx, groupID)
	var list []models.MemberProfile
	if val := args.Get(0); val != nil {
		list = val.([]models.MemberProfile)
	}
	return list, args.Error(1)
}

func (m *GroupRepositoryMock) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	args := m.Called(ctx, userID)
	var list []models.Group
	if val := args.Get(0); val != nil {
		list = val.([]models.Group)
	}
	return list, args.Error(1)
}

func (m *GroupRepositoryMock) IsMember(ctx context.Context, groupID int, userID string) (bool, error) {
	args := m.Called(ctx, groupID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *GroupRepositoryMock) Leaderboard(ctx context.Context, groupID int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, groupID)
	var list []models.LeaderboardEntry
	if val := args.Get(0); val != nil {
		list = val.([]models.LeaderboardEntry)
	}
	return list, args.Error(1)
}

type GroupMessageRepositoryMock struct {
	mock.Mock
}

func (m *GroupMessageRepositoryMock) CreateGroupMessage(ctx context.Context, groupID int, userID string, message string) (models.ChatMessage, error) {
	args := m.Called(ctx, groupID, userID, message)
	var msg models.ChatMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ChatMessage)
	}
	return msg, args.Error(1)
}

func (m *GroupMessageRepositoryMock) ListGroupMessages(ctx context.Context, groupID int) ([]models.ChatMessageView, error) {
	args := m.Called(ctx, groupID)
	var msgs []models.ChatMessageView
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ChatMessageView)
	}
	return msgs, args.Error(1)
}

type StatsRepositoryMock struct {
	mock.Mock
}

func (m *StatsRepositoryMock) ListGroupStats(ctx context.Context, groupID int) ([]models.PlayerStats, error) {
	args := m.Called(ctx, groupID)
	var stats []models.PlayerStats
	if val := args.Get(0); val != nil {
		stats = val.([]models.PlayerStats)
	}
	return stats, args.Error(1)
}

// GameRepositoryMock records MutateGame calls; tests that need the callback
// to run can do so from a Run hook.
type GameRepositoryMock struct {
	mock.Mock
}

func (m *GameRepositoryMock) CreateGame(ctx context.Context, game models.Game, creator models.GameParticipant) (models.GameDetails, error) {
	args := m.Called(ctx, game, creator)
	var details models.GameDetails
	if val := args.Get(0); val != nil {
		details = val.(models.GameDetails)
	}
	return details, args.Error(1)
}

func (m *GameRepositoryMock) GetGame(ctx context.Context, gameID int) (models.Game, error) {
	args := m.Called(ctx, gameID)
	var game models.Game
	if val := args.Get(0); val != nil {
		game = val.(models.Game)
	}
	return game, args.Error(1)
}

func (m *GameRepositoryMock) ListParticipants(ctx context.Context, gameID int) ([]models.GameParticipant, error) {
	args := m.Called(ctx, gameID)
	var list []models.GameParticipant
	if val := args.Get(0); val != nil {
		list = val.([]models.GameParticipant)
	}
	return list, args.Error(1)
}

func (m *GameRepositoryMock) GetActiveGame(ctx context.Context, groupID int) (*models.Game, error) {
	args := m.Called(ctx, groupID)
	var game *models.Game
	if val := args.Get(0); val != nil {
		game = val.(*models.Game)
	}
	return game, args.Error(1)
}

func (m *GameRepositoryMock) MutateGame(ctx context.Context, gameID int, fn repositories.GameMutation) (models.Game, error) {
	args := m.Called(ctx, gameID, fn)
	var game models.Game
	if val := args.Get(0); val != nil {
		game = val.(models.Game)
	}
	return game, args.Error(1)
}

var (
	_ repositories.UserRepository         = (*UserRepositoryMock)(nil)
	_ repositories.GroupRepository        = (*GroupRepositoryMock)(nil)
	_ repositories.GroupMessageRepository = (*GroupMessageRepositoryMock)(nil)
	_ repositories.StatsRepository        = (*StatsRepositoryMock)(nil)
	_ repositories.GameRepository         = (*GameRepositoryMock)(nil)
)
