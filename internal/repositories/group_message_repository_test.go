package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListGroupMessagesOldestFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupMessageRepo(db)
	first := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)
	email := "ana@example.com"

	mock.ExpectQuery(`(?s)FROM chat_messages m LEFT JOIN users u ON u\.id = m\.user_id\s+` +
		`WHERE m\.group_id=\$1 ORDER BY m\.created_at ASC, m\.id ASC`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "user_id", "message", "created_at",
			"author_id", "email", "first_name", "last_name", "profile_image_url", "author_created_at", "author_updated_at"}).
			AddRow(10, 2, "u1", "gg", first, "u1", email, nil, nil, nil, first, first).
			AddRow(11, 2, "gone", "rematch?", second, nil, nil, nil, nil, nil, nil, nil))

	msgs, err := repo.ListGroupMessages(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, 10, msgs[0].ID)
	require.NotNil(t, msgs[0].User)
	assert.Equal(t, "u1", msgs[0].User.ID)
	assert.Equal(t, email, *msgs[0].User.Email)
	assert.Equal(t, 11, msgs[1].ID)
	assert.Nil(t, msgs[1].User)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroupMessageReturnsRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupMessageRepo(db)
	now := time.Now()

	mock.ExpectQuery(q(`INSERT INTO chat_messages (group_id, user_id, message) VALUES ($1, $2, $3)`)).
		WithArgs(2, "u1", "hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "user_id", "message", "created_at"}).
			AddRow(12, 2, "u1", "hello", now))

	msg, err := repo.CreateGroupMessage(context.Background(), 2, "u1", "hello")
	require.NoError(t, err)
	assert.Equal(t, 12, msg.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
