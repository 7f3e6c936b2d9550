package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"groupgames-service/internal/models"
	"groupgames-service/internal/repositories"
)

const (
	maxInviteAttempts = 5
	maxGroupNameLen   = 100
	maxMessageLen     = 1000
)

// PresenceStore holds the statuses members announce over the relay.
type PresenceStore interface {
	GroupPresence(ctx context.Context, groupID int) (map[string]string, error)
	ClearPlayerStatus(ctx context.Context, groupID int, userID string) error
}

// GroupService owns group membership rules, leaderboards and the chat path.
type GroupService struct {
	groups   repositories.GroupRepository
	messages repositories.GroupMessageRepository
	stats    repositories.StatsRepository
	users    repositories.UserRepository
	presence PresenceStore
}

// NewGroupService constructs a GroupService. presence may be nil.
func NewGroupService(groups repositories.GroupRepository, messages repositories.GroupMessageRepository, stats repositories.StatsRepository, users repositories.UserRepository, presence PresenceStore) *GroupService {
	return &GroupService{groups: groups, messages: messages, stats: stats, users: users, presence: presence}
}

// CreateGroupInput carries the client supplied group attributes.
type CreateGroupInput struct {
	Name        string
	Description *string
}

// CreateGroup persists a group with a fresh invite code and makes the creator
// its first member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID string, in CreateGroupInput) (models.Group, error) {
	name := sanitizeText(in.Name)
	if name == "" || utf8.RuneCountInString(name) > maxGroupNameLen {
		return models.Group{}, fmt.Errorf("%w: name must be 1-%d characters", ErrValidation, maxGroupNameLen)
	}
	var description *string
	if in.Description != nil {
		if d := sanitizeText(*in.Description); d != "" {
			description = &d
		}
	}

	for attempt := 1; attempt <= maxInviteAttempts; attempt++ {
		code, err := newInviteCode()
		if err != nil {
			return models.Group{}, err
		}
		group, err := s.groups.CreateGroup(ctx, creatorID, name, description, code)
		if errors.Is(err, repositories.ErrInviteCodeTaken) {
			logrus.WithField("attempt", attempt).Warn("invite code collision, retrying")
			continue
		}
		if err != nil {
			return models.Group{}, err
		}
		return group, nil
	}
	return models.Group{}, errors.New("could not allocate a unique invite code")
}

// JoinGroup adds the user to the group behind the invite code.
func (s *GroupService) JoinGroup(ctx context.Context, inviteCode, userID string) (models.Group, error) {
	code := strings.ToUpper(strings.TrimSpace(inviteCode))
	group, err := s.groups.GetGroupByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return models.Group{}, fmt.Errorf("%w: invalid invite code", ErrNotFound)
		}
		return models.Group{}, err
	}

	if err := s.groups.AddMember(ctx, group.ID, userID, models.MaxGroupMembers); err != nil {
		return models.Group{}, repoError(err)
	}
	return group, nil
}

// LeaveGroup removes the membership if present and forgets the user's status.
func (s *GroupService) LeaveGroup(ctx context.Context, groupID int, userID string) error {
	if err := s.groups.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}
	if s.presence != nil {
		if err := s.presence.ClearPlayerStatus(ctx, groupID, userID); err != nil {
			logrus.WithError(err).WithField("group_id", groupID).Warn("clear presence failed")
		}
	}
	return nil
}

// Presence returns user id -> last announced status for a member's group.
func (s *GroupService) Presence(ctx context.Context, groupID int, userID string) (map[string]string, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	if s.presence == nil {
		return map[string]string{}, nil
	}
	return s.presence.GroupPresence(ctx, groupID)
}

// GetGroup returns a group by id.
func (s *GroupService) GetGroup(ctx context.Context, groupID int) (models.Group, error) {
	group, err := s.groups.GetGroup(ctx, groupID)
	return group, repoError(err)
}

// GetGroupByInviteCode returns the group an invite code points to.
func (s *GroupService) GetGroupByInviteCode(ctx context.Context, inviteCode string) (models.Group, error) {
	group, err := s.groups.GetGroupByInviteCode(ctx, strings.ToUpper(strings.TrimSpace(inviteCode)))
	return group, repoError(err)
}

// ListUserGroups returns the groups the user belongs to.
func (s *GroupService) ListUserGroups(ctx context.Context, userID string) ([]models.Group, error) {
	return s.groups.ListGroupsForUser(ctx, userID)
}

// ListMembers returns the group's members with profiles.
func (s *GroupService) ListMembers(ctx context.Context, groupID int) ([]models.MemberProfile, error) {
	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return members, s.requireGroup(ctx, groupID)
	}
	return members, nil
}

// IsMember reports whether the user belongs to the group.
func (s *GroupService) IsMember(ctx context.Context, groupID int, userID string) (bool, error) {
	return s.groups.IsMember(ctx, groupID, userID)
}

// Leaderboard ranks every member by wins summed over all game types.
func (s *GroupService) Leaderboard(ctx context.Context, groupID int) ([]models.LeaderboardEntry, error) {
	entries, err := s.groups.Leaderboard(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, s.requireGroup(ctx, groupID)
	}
	return entries, nil
}

// GroupStats returns the raw per-game-type stats of the group.
func (s *GroupService) GroupStats(ctx context.Context, groupID int) ([]models.PlayerStats, error) {
	stats, err := s.stats.ListGroupStats(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return stats, s.requireGroup(ctx, groupID)
	}
	return stats, nil
}

// requireGroup tells an empty group apart from a missing one.
func (s *GroupService) requireGroup(ctx context.Context, groupID int) error {
	_, err := s.groups.GetGroup(ctx, groupID)
	return repoError(err)
}

// PostMessage stores a chat message from a member and returns it with its author.
func (s *GroupService) PostMessage(ctx context.Context, groupID int, userID, text string) (models.ChatMessageView, error) {
	body := sanitizeText(text)
	if body == "" || utf8.RuneCountInString(body) > maxMessageLen {
		return models.ChatMessageView{}, fmt.Errorf("%w: message must be 1-%d characters", ErrValidation, maxMessageLen)
	}
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return models.ChatMessageView{}, err
	}

	msg, err := s.messages.CreateGroupMessage(ctx, groupID, userID, body)
	if err != nil {
		return models.ChatMessageView{}, err
	}

	view := models.ChatMessageView{ChatMessage: msg}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Warn("could not resolve message author")
		return view, nil
	}
	view.User = &user
	return view, nil
}

// ListMessages returns the group's chat history, oldest first.
func (s *GroupService) ListMessages(ctx context.Context, groupID int, userID string) ([]models.ChatMessageView, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.messages.ListGroupMessages(ctx, groupID)
}

func (s *GroupService) requireMember(ctx context.Context, groupID int, userID string) error {
	member, err := s.groups.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrNotMember
	}
	return nil
}
