package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupgames-service/internal/models"
)

func TestConnectDisabledWithoutAddr(t *testing.T) {
	c, err := Connect(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	require.NoError(t, c.PushGameAction(ctx, models.GameAction{GameID: 1}))
	require.NoError(t, c.SetPlayerStatus(ctx, 1, "u1", "online"))
	require.NoError(t, c.ClearPlayerStatus(ctx, 1, "u1"))
	presence, err := c.GroupPresence(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, presence)
	require.NoError(t, c.Close())
}

func TestPresenceKey(t *testing.T) {
	assert.Equal(t, "group:12:presence", presenceKey(12))
}
