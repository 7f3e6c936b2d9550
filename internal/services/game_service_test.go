package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"groupgames-service/internal/mocks"
	"groupgames-service/internal/models"
	"groupgames-service/internal/rules"
)

type gameFixture struct {
	svc     *GameService
	store   *memGames
	groups  *mocks.GroupRepositoryMock
	actions *mocks.ActionLogMock
}

func newGameFixture(t *testing.T) gameFixture {
	t.Helper()
	store := newMemGames()
	groups := new(mocks.GroupRepositoryMock)
	actions := new(mocks.ActionLogMock)
	groups.On("IsMember", mock.Anything, 1, mock.AnythingOfType("string")).Return(true, nil).Maybe()
	actions.On("PushGameAction", mock.Anything, mock.Anything).Return(nil).Maybe()
	return gameFixture{
		svc:     NewGameService(store, groups, rules.DefaultRegistry(), actions),
		store:   store,
		groups:  groups,
		actions: actions,
	}
}

func position(n int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"position":%d}`, n))
}

func TestCreateGameRejectsUnknownType(t *testing.T) {
	f := newGameFixture(t)

	_, err := f.svc.CreateGame(context.Background(), 1, "u1", "checkers")
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.store.games)
}

func TestCreateGameRequiresMembership(t *testing.T) {
	store := newMemGames()
	groups := new(mocks.GroupRepositoryMock)
	groups.On("IsMember", mock.Anything, 2, "stranger").Return(false, nil).Once()
	svc := NewGameService(store, groups, rules.DefaultRegistry(), nil)

	_, err := svc.CreateGame(context.Background(), 2, "stranger", rules.TypeTicTacToe)
	require.ErrorIs(t, err, ErrNotMember)
	groups.AssertExpectations(t)
}

func TestCreateGameSeatsCreator(t *testing.T) {
	f := newGameFixture(t)

	details, err := f.svc.CreateGame(context.Background(), 1, "u1", rules.TypeChess)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusWaiting, details.Status)
	require.NotNil(t, details.CurrentTurn)
	assert.Equal(t, "u1", *details.CurrentTurn)
	require.Len(t, details.Participants, 1)
	assert.Equal(t, "white", *details.Participants[0].PlayerSymbol)
	assert.False(t, details.Participants[0].IsSpectator)
}

func TestCreateGameConflictsWithOpenGame(t *testing.T) {
	f := newGameFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateGame(ctx, 1, "u1", rules.TypeTicTacToe)
	require.NoError(t, err)

	_, err = f.svc.CreateGame(ctx, 1, "u2", rules.TypeCoinToss)
	require.ErrorIs(t, err, ErrConflict)
}

func TestJoinGameSeatsThenSpectates(t *testing.T) {
	f := newGameFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateGame(ctx, 1, "u1", rules.TypeTicTacToe)
	require.NoError(t, err)

	second, err := f.svc.JoinGame(ctx, created.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, "O", *second.Participant.PlayerSymbol)
	assert.Equal(t, models.GameStatusActive, second.Game.Status)
	assert.NotZero(t, second.Participant.ID)
	assert.Equal(t, created.ID, second.Participant.GameID)
	assert.False(t, second.Participant.JoinedAt.IsZero())

	third, err := f.svc.JoinGame(ctx, created.ID, "u3")
	require.NoError(t, err)
	assert.Equal(t, "△", *third.Participant.PlayerSymbol)

	fourth, err := f.svc.JoinGame(ctx, created.ID, "u4")
	require.NoError(t, err)
	assert.True(t, fourth.Participant.IsSpectator)
	assert.Nil(t, fourth.Participant.PlayerSymbol)

	again, err := f.svc.JoinGame(ctx, created.ID, "u2")
	require.NoError(t, err)
	assert.True(t, again.AlreadyJoined)
	assert.Equal(t, second.Participant.ID, again.Participant.ID)

	details, err := f.svc.GetGame(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, details.Participants, 4)
}

func TestChessStaysWaitingUntilTwoSeats(t *testing.T) {
	f := newGameFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateGame(ctx, 1, "u1", rules.TypeChess)
	require.NoError(t, err)

	_, err = f.svc.MakeMove(ctx, created.ID, "u1", json.RawMessage(`{"move":"e2e4"}`))
	require.ErrorIs(t, err, ErrConflict)

	joined, err := f.svc.JoinGame(ctx, created.ID, "u2")
	require.NoError(t, err)
	assert.Equal(t, "black", *joined.Participant.PlayerSymbol)
	assert.Equal(t, models.GameStatusActive, joined.Game.Status)

	third, err := f.svc.JoinGame(ctx, created.ID, "u3")
	require.NoError(t, err)
	assert.True(t, third.Participant.IsSpectator)
}

func TestJoinGameNotFound(t *testing.T) {
	f := newGameFixture(t)

	_, err := f.svc.JoinGame(context.Background(), 99, "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMakeMovePlaysTicTacToeToCompletion(t *testing.T) {
	f := newGameFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateGame(ctx, 1, "u1", rules.TypeTicTacToe)
	require.NoError(t, err)
	for _, u := range []string{"u2", "u3", "u4"} {
		_, err := f.svc.JoinGame(ctx, created.ID, u)
		require.NoError(t, err)
	}

	_, err = f.svc.MakeMove(ctx, created.ID, "u2", position(4))
	require.ErrorIs(t, err, ErrForbidden)

	turns := []struct {
		user string
		cell int
	}{
		{"u1", 0}, {"u2", 3}, {"u3", 6}, {"u1", 1}, {"u2", 4}, {"u3", 8},
	}
	for _, turn := range turns {
		out, err := f.svc.MakeMove(ctx, created.ID, turn.user, position(turn.cell))
		require.NoError(t, err, "%s -> %d", turn.user, turn.cell)
		assert.Equal(t, models.GameStatusActive, out.Status)
	}

	_, err = f.svc.MakeMove(ctx, created.ID, "u1", position(4))
	require.ErrorIs(t, err, ErrValidation)

	out, err := f.svc.MakeMove(ctx, created.ID, "u1", position(2))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCompleted, out.Status)
	require.NotNil(t, out.WinnerID)
	assert.Equal(t, "u1", *out.WinnerID)
	assert.Nil(t, out.NextTurn)

	results := map[string]models.Result{}
	for _, d := range f.store.deltas {
		results[d.UserID] = d.Result
		assert.Equal(t, rules.TypeTicTacToe, d.GameType)
	}
	assert.Equal(t, map[string]models.Result{
		"u1": models.ResultWin,
		"u2": models.ResultLoss,
		"u3": models.ResultLoss,
	}, results)

	_, err = f.svc.MakeMove(ctx, created.ID, "u2", position(5))
	require.ErrorIs(t, err, ErrConflict)
	_, err = f.svc.JoinGame(ctx, created.ID, "u5")
	require.ErrorIs(t, err, ErrConflict)

	active, err := f.svc.GetActiveGame(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, active)

	f.actions.AssertNumberOfCalls(t, "PushGameAction", len(turns)+1)
}

func TestMakeMoveIgnoresActionLogFailure(t *testing.T) {
	store := newMemGames()
	groups := new(mocks.GroupRepositoryMock)
	groups.On("IsMember", mock.Anything, 1, mock.Anything).Return(true, nil)
	actions := new(mocks.ActionLogMock)
	actions.On("PushGameAction", mock.Anything, mock.MatchedBy(func(a models.GameAction) bool {
		return a.UserID == "u1" && a.GameType == rules.TypeRockPaperScissors
	})).Return(errors.New("redis down")).Once()
	svc := NewGameService(store, groups, rules.DefaultRegistry(), actions)
	ctx := context.Background()

	created, err := svc.CreateGame(ctx, 1, "u1", rules.TypeRockPaperScissors)
	require.NoError(t, err)
	_, err = svc.JoinGame(ctx, created.ID, "u2")
	require.NoError(t, err)

	out, err := svc.MakeMove(ctx, created.ID, "u1", json.RawMessage(`{"choice":"rock"}`))
	require.NoError(t, err)
	require.NotNil(t, out.NextTurn)
	assert.Equal(t, "u2", *out.NextTurn)
	actions.AssertExpectations(t)
}

func TestRockPaperScissorsChoiceStaysHidden(t *testing.T) {
	f := newGameFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateGame(ctx, 1, "u1", rules.TypeRockPaperScissors)
	require.NoError(t, err)
	joined, err := f.svc.JoinGame(ctx, created.ID, "u2")
	require.NoError(t, err)
	require.Equal(t, models.GameStatusActive, joined.Game.Status)

	out, err := f.svc.MakeMove(ctx, created.ID, "u1", json.RawMessage(`{"choice":"rock"}`))
	require.NoError(t, err)
	assert.NotContains(t, string(out.State), "rock")
	assert.NotContains(t, string(out.Game.GameState), "rock")

	details, err := f.svc.GetGame(ctx, created.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(details.GameState), "rock")
	assert.JSONEq(t, `{"choices":{},"picked":["u1"],"revealed":false}`, string(details.GameState))

	active, err := f.svc.GetActiveGame(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.NotContains(t, string(active.GameState), "rock")

	// the stored state still holds the choice so the round can resolve
	assert.Contains(t, string(f.store.games[created.ID].GameState), "rock")

	final, err := f.svc.MakeMove(ctx, created.ID, "u2", json.RawMessage(`{"choice":"scissors"}`))
	require.NoError(t, err)
	require.NotNil(t, final.WinnerID)
	assert.Equal(t, "u1", *final.WinnerID)
	assert.Contains(t, string(final.State), "rock")
}

func TestGetActiveGameReturnsOpenGame(t *testing.T) {
	f := newGameFixture(t)
	ctx := context.Background()

	none, err := f.svc.GetActiveGame(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	created, err := f.svc.CreateGame(ctx, 1, "u1", rules.TypeWordBattle)
	require.NoError(t, err)

	active, err := f.svc.GetActiveGame(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, created.ID, active.ID)
	assert.Len(t, active.Participants, 1)
}

func TestStatDeltasDraw(t *testing.T) {
	game := models.Game{GroupID: 4, GameType: rules.TypeCoinToss}
	deltas := statDeltas(game, []rules.Player{{UserID: "a"}, {UserID: "b"}}, nil)

	require.Len(t, deltas, 2)
	for _, d := range deltas {
		assert.Equal(t, models.ResultDraw, d.Result)
		assert.Equal(t, 4, d.GroupID)
	}
}
