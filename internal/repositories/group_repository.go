package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"groupgames-service/internal/models"
)

var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrGroupFull       = errors.New("group is full")
	ErrAlreadyMember   = errors.New("user already a member")
	ErrInviteCodeTaken = errors.New("invite code already in use")
)

// GroupRepository abstracts group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, creatorID, name string, description *string, inviteCode string) (models.Group, error)
	GetGroup(ctx context.Context, groupID int) (models.Group, error)
	GetGroupByInviteCode(ctx context.Context, inviteCode string) (models.Group, error)
	AddMember(ctx context.Context, groupID int, userID string, maxMembers int) error
	RemoveMember(ctx context.Context, groupID int, userID string) error
	ListMembers(ctx context.Context, groupID int) ([]models.MemberProfile, error)
	ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error)
	IsMember(ctx context.Context, groupID int, userID string) (bool, error)
	Leaderboard(ctx context.Context, groupID int) ([]models.LeaderboardEntry, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

const groupColumns = `id, name, description, invite_code, created_by, created_at`

// CreateGroup creates a group and its creator membership atomically.
func (r *GroupRepo) CreateGroup(ctx context.Context, creatorID, name string, description *string, inviteCode string) (models.Group, error) {
	var group models.Group
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &group, `INSERT INTO groups (name, description, invite_code, created_by)
            VALUES ($1, $2, $3, $4) RETURNING `+groupColumns, name, description, inviteCode, creatorID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, creatorID)
		return err
	})
	if isUniqueViolation(err) {
		return models.Group{}, ErrInviteCodeTaken
	}
	if err != nil {
		return models.Group{}, err
	}
	return group, nil
}

// GetGroup fetches a single group.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// GetGroupByInviteCode resolves an invite code to its group.
func (r *GroupRepo) GetGroupByInviteCode(ctx context.Context, inviteCode string) (models.Group, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM groups WHERE invite_code=$1`, inviteCode)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// AddMember inserts a membership while holding a lock on the group row, so the
// capacity check and the insert cannot interleave with a concurrent join.
func (r *GroupRepo) AddMember(ctx context.Context, groupID int, userID string, maxMembers int) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var locked int
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM groups WHERE id=$1 FOR UPDATE`, groupID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrGroupNotFound
			}
			return err
		}

		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM group_members WHERE group_id=$1`, groupID); err != nil {
			return err
		}
		if count >= maxMembers {
			return ErrGroupFull
		}

		var member bool
		if err := tx.GetContext(ctx, &member, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID); err != nil {
			return err
		}
		if member {
			return ErrAlreadyMember
		}

		_, err := tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, groupID, userID)
		if isUniqueViolation(err) {
			return ErrAlreadyMember
		}
		return err
	})
}

// RemoveMember deletes a membership. Removing a non-member is not an error.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID int, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	return err
}

// ListMembers returns the group's members with their profiles, oldest first.
func (r *GroupRepo) ListMembers(ctx context.Context, groupID int) ([]models.MemberProfile, error) {
	members := []models.MemberProfile{}
	err := r.db.SelectContext(ctx, &members, `SELECT gm.group_id, gm.user_id, gm.joined_at,
            u.id, u.email, u.first_name, u.last_name, u.profile_image_url, u.created_at, u.updated_at
        FROM group_members gm INNER JOIN users u ON u.id = gm.user_id
        WHERE gm.group_id=$1 ORDER BY gm.joined_at ASC`, groupID)
	return members, err
}

// ListGroupsForUser returns groups that include the user.
func (r *GroupRepo) ListGroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	groups := []models.Group{}
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.name, g.description, g.invite_code, g.created_by, g.created_at
        FROM groups g INNER JOIN group_members gm ON gm.group_id = g.id
        WHERE gm.user_id=$1 ORDER BY g.created_at DESC`, userID)
	return groups, err
}

// IsMember checks membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID int, userID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// Leaderboard sums wins per member across game types. Members without stats
// are included with zero wins.
func (r *GroupRepo) Leaderboard(ctx context.Context, groupID int) ([]models.LeaderboardEntry, error) {
	entries := []models.LeaderboardEntry{}
	err := r.db.SelectContext(ctx, &entries, `SELECT u.id, u.email, u.first_name, u.last_name, u.profile_image_url,
            u.created_at, u.updated_at, COALESCE(SUM(ps.wins), 0) AS total_wins
        FROM group_members gm
        INNER JOIN users u ON u.id = gm.user_id
        LEFT JOIN player_stats ps ON ps.user_id = gm.user_id AND ps.group_id = gm.group_id
        WHERE gm.group_id=$1
        GROUP BY u.id
        ORDER BY total_wins DESC, u.id ASC`, groupID)
	return entries, err
}
