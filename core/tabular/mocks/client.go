package mocks

import (
	"context"

	"workspace-sync/core/tabular"

	"github.com/stretchr/testify/mock"
)

// Client is a mock implementation of tabular.Client
type Client struct {
	mock.Mock
}

func (m *Client) Authenticate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *Client) ListTables(ctx context.Context, pattern string) ([]tabular.TableInfo, error) {
	args := m.Called(ctx, pattern)
	if tables, ok := args.Get(0).([]tabular.TableInfo); ok {
		return tables, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) ListColumns(ctx context.Context, table string) ([]tabular.Column, error) {
	args := m.Called(ctx, table)
	if cols, ok := args.Get(0).([]tabular.Column); ok {
		return cols, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) SelectPage(ctx context.Context, table, orderBy string, limit, offset int) ([]tabular.Row, error) {
	args := m.Called(ctx, table, orderBy, limit, offset)
	if rows, ok := args.Get(0).([]tabular.Row); ok {
		return rows, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Client) DeleteWhereIDIn(ctx context.Context, table string, ids []string) error {
	args := m.Called(ctx, table, ids)
	return args.Error(0)
}

func (m *Client) InsertBatch(ctx context.Context, table string, rows []tabular.Row, batchSize int) error {
	args := m.Called(ctx, table, rows, batchSize)
	return args.Error(0)
}

func (m *Client) ExecuteStatement(ctx context.Context, sql string, biscuits []string) (tabular.Result, error) {
	args := m.Called(ctx, sql, biscuits)
	if res, ok := args.Get(0).(tabular.Result); ok {
		return res, args.Error(1)
	}
	return tabular.Result{}, args.Error(1)
}
