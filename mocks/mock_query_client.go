package mocks

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"qbridge/internal/domain"
	"qbridge/internal/port"
)

// MockQueryClient is a mock implementation of port.QueryClient.
type MockQueryClient struct {
	mock.Mock
}

func (m *MockQueryClient) QueryAll(ctx context.Context, conn domain.Connection, entity domain.EntityType, where string) ([]json.RawMessage, error) {
	args := m.Called(ctx, conn, entity, where)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]json.RawMessage), args.Error(1)
}

func (m *MockQueryClient) QueryPage(ctx context.Context, conn domain.Connection, entity domain.EntityType, where string, startPos, pageSize int) ([]json.RawMessage, error) {
	args := m.Called(ctx, conn, entity, where, startPos, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]json.RawMessage), args.Error(1)
}

func (m *MockQueryClient) FetchByID(ctx context.Context, conn domain.Connection, entity domain.EntityType, id string) (json.RawMessage, error) {
	args := m.Called(ctx, conn, entity, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockQueryClient) DownloadFile(ctx context.Context, conn domain.Connection, att *domain.Attachable) (*port.FileContent, error) {
	args := m.Called(ctx, conn, att)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.FileContent), args.Error(1)
}

func (m *MockQueryClient) UploadAttachment(ctx context.Context, conn domain.Connection, entity domain.EntityType, targetID string, file *port.FileContent, note string) error {
	args := m.Called(ctx, conn, entity, targetID, file, note)
	return args.Error(0)
}

func (m *MockQueryClient) CompanyName(ctx context.Context, conn domain.Connection) (string, error) {
	args := m.Called(ctx, conn)
	return args.String(0), args.Error(1)
}
