package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"groupgames-service/internal/models"
)

// GroupMessageRepository defines interactions for group chat messages.
type GroupMessageRepository interface {
	CreateGroupMessage(ctx context.Context, groupID int, userID string, message string) (models.ChatMessage, error)
	ListGroupMessages(ctx context.Context, groupID int) ([]models.ChatMessageView, error)
}

// GroupMessageRepo is a sqlx-backed implementation.
type GroupMessageRepo struct {
	db *sqlx.DB
}

// NewGroupMessageRepo constructs a GroupMessageRepo.
func NewGroupMessageRepo(db *sqlx.DB) *GroupMessageRepo {
	return &GroupMessageRepo{db: db}
}

// CreateGroupMessage persists a group message.
func (r *GroupMessageRepo) CreateGroupMessage(ctx context.Context, groupID int, userID string, message string) (models.ChatMessage, error) {
	var msg models.ChatMessage
	err := r.db.GetContext(ctx, &msg, `INSERT INTO chat_messages (group_id, user_id, message) VALUES ($1, $2, $3)
        RETURNING id, group_id, user_id, message, created_at`, groupID, userID, message)
	return msg, err
}

type messageRow struct {
	models.ChatMessage
	AuthorID        *string    `db:"author_id"`
	Email           *string    `db:"email"`
	FirstName       *string    `db:"first_name"`
	LastName        *string    `db:"last_name"`
	ProfileImageURL *string    `db:"profile_image_url"`
	AuthorCreatedAt *time.Time `db:"author_created_at"`
	AuthorUpdatedAt *time.Time `db:"author_updated_at"`
}

// ListGroupMessages returns the group's messages with their authors, oldest first.
func (r *GroupMessageRepo) ListGroupMessages(ctx context.Context, groupID int) ([]models.ChatMessageView, error) {
	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `SELECT m.id, m.group_id, m.user_id, m.message, m.created_at,
            u.id AS author_id, u.email, u.first_name, u.last_name, u.profile_image_url,
            u.created_at AS author_created_at, u.updated_at AS author_updated_at
        FROM chat_messages m LEFT JOIN users u ON u.id = m.user_id
        WHERE m.group_id=$1 ORDER BY m.created_at ASC, m.id ASC`, groupID)
	if err != nil {
		return nil, err
	}

	msgs := make([]models.ChatMessageView, 0, len(rows))
	for _, row := range rows {
		view := models.ChatMessageView{ChatMessage: row.ChatMessage}
		if row.AuthorID != nil {
			author := models.User{
				ID:              *row.AuthorID,
				Email:           row.Email,
				FirstName:       row.FirstName,
				LastName:        row.LastName,
				ProfileImageURL: row.ProfileImageURL,
			}
			if row.AuthorCreatedAt != nil {
				author.CreatedAt = *row.AuthorCreatedAt
			}
			if row.AuthorUpdatedAt != nil {
				author.UpdatedAt = *row.AuthorUpdatedAt
			}
			view.User = &author
		}
		msgs = append(msgs, view)
	}
	return msgs, nil
}
