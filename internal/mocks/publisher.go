package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"groupgames-service/internal/models"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type ActionLogMock struct {
	mock.Mock
}

func (m *ActionLogMock) PushGameAction(ctx context.Context, action models.GameAction) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

type PresenceStoreMock struct {
	mock.Mock
}

func (m *PresenceStoreMock) GroupPresence(ctx context.Context, groupID int) (map[string]string, error) {
	args := m.Called(ctx, groupID)
	var presence map[string]string
	if val := args.Get(0); val != nil {
		presence = val.(map[string]string)
	}
	return presence, args.Error(1)
}

func (m *PresenceStoreMock) ClearPlayerStatus(ctx context.Context, groupID int, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}
