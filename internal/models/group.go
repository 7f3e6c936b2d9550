package models

import "time"

// MaxGroupMembers caps how many users may belong to one group.
const MaxGroupMembers = 3

// Group represents a play group joined through an invite code.
type Group struct {
	ID          int       `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	InviteCode  string    `db:"invite_code" json:"inviteCode"`
	CreatedBy   string    `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// GroupMember links a user to a group.
type GroupMember struct {
	GroupID  int       `db:"group_id" json:"groupId"`
	UserID   string    `db:"user_id" json:"userId"`
	JoinedAt time.Time `db:"joined_at" json:"joinedAt"`
}

// MemberProfile is a membership row flattened together with the member's
// profile.
type MemberProfile struct {
	GroupMember
	User
}

// LeaderboardEntry is a member's profile with wins summed across game types.
type LeaderboardEntry struct {
	User
	TotalWins int `db:"total_wins" json:"totalWins"`
}

// ChatMessage represents a message sent in a group.
type ChatMessage struct {
	ID        int       `db:"id" json:"id"`
	GroupID   int       `db:"group_id" json:"groupId"`
	UserID    string    `db:"user_id" json:"userId"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ChatMessageView is a chat message together with its author.
type ChatMessageView struct {
	ChatMessage
	User *User `json:"user"`
}
