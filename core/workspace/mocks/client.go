package mocks

import (
	"context"

	"workspace-sync/core/workspace"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of workspace.Client
type Client struct {
	mock.Mock
}

func (m *Client) GetDataset(ctx context.Context, containerID string, rowLimit int) (*workspace.Dataset, error) {
	args := m.Called(ctx, containerID, rowLimit)
	if ds, ok := args.Get(0).(*workspace.Dataset); ok {
		return ds, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) GetUsers(ctx context.Context) (map[string]workspace.User, error) {
	args := m.Called(ctx)
	if users, ok := args.Get(0).(map[string]workspace.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}
