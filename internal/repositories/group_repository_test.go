package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupgames-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return sqlx.NewDb(raw, "postgres"), mock
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

var (
	lockGroupSQL   = q(`SELECT id FROM groups WHERE id=$1 FOR UPDATE`)
	countMemberSQL = q(`SELECT COUNT(*) FROM group_members WHERE group_id=$1`)
	isMemberSQL    = q(`SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`)
	insertMember   = q(`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`)
)

func TestAddMemberInsertsUnderGroupLock(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockGroupSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(countMemberSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(isMemberSQL).WithArgs(7, "u3").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(insertMember).WithArgs(7, "u3").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AddMember(context.Background(), 7, "u3", models.MaxGroupMembers))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberRejectsFullGroup(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockGroupSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(countMemberSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectRollback()

	err := repo.AddMember(context.Background(), 7, "u4", models.MaxGroupMembers)
	require.ErrorIs(t, err, ErrGroupFull)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberRejectsDuplicate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockGroupSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(countMemberSQL).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(isMemberSQL).WithArgs(7, "u1").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.AddMember(context.Background(), 7, "u1", models.MaxGroupMembers)
	require.ErrorIs(t, err, ErrAlreadyMember)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberUnknownGroup(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockGroupSQL).WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.AddMember(context.Background(), 99, "u1", models.MaxGroupMembers)
	require.ErrorIs(t, err, ErrGroupNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaderboardKeepsMembersWithoutStats(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)
	now := time.Now()

	mock.ExpectQuery(`(?s)COALESCE\(SUM\(ps\.wins\), 0\) AS total_wins\s+FROM group_members gm\s+` +
		`INNER JOIN users u ON u\.id = gm\.user_id\s+` +
		`LEFT JOIN player_stats ps ON ps\.user_id = gm\.user_id AND ps\.group_id = gm\.group_id\s+` +
		`WHERE gm\.group_id=\$1\s+GROUP BY u\.id\s+ORDER BY total_wins DESC, u\.id ASC`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "profile_image_url", "created_at", "updated_at", "total_wins"}).
			AddRow("u2", nil, nil, nil, nil, now, now, 4).
			AddRow("u1", nil, nil, nil, nil, now, now, 0))

	entries, err := repo.Leaderboard(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "u2", entries[0].ID)
	assert.Equal(t, 4, entries[0].TotalWins)
	assert.Equal(t, "u1", entries[1].ID)
	assert.Zero(t, entries[1].TotalWins)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListMembersJoinsProfiles(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewGroupRepo(db)
	now := time.Now()
	email := "ana@example.com"

	mock.ExpectQuery(`(?s)FROM group_members gm INNER JOIN users u ON u\.id = gm\.user_id\s+` +
		`WHERE gm\.group_id=\$1 ORDER BY gm\.joined_at ASC`).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows([]string{"group_id", "user_id", "joined_at", "id", "email", "first_name", "last_name", "profile_image_url", "created_at", "updated_at"}).
			AddRow(6, "u1", now, "u1", email, nil, nil, nil, now, now))

	members, err := repo.ListMembers(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, 6, members[0].GroupID)
	assert.Equal(t, "u1", members[0].UserID)
	require.NotNil(t, members[0].Email)
	assert.Equal(t, email, *members[0].Email)
	require.NoError(t, mock.ExpectationsWereMet())
}
