package mocks

import (
	"context"

	"github.com/absmach/flcoord/coordinator"
	"github.com/absmach/flcoord/pkg/checkpoint"
	"github.com/absmach/flcoord/pkg/fl"
	"github.com/absmach/flcoord/pkg/registry"
	"github.com/absmach/flcoord/pkg/round"
	"github.com/stretchr/testify/mock"
)

var _ coordinator.Service = (*MockService)(nil)

// MockService is a mock implementation of the coordinator.Service interface
type MockService struct {
	mock.Mock
}

func (m *MockService) ListClients(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	clients, _ := args.Get(0).([]string)

	return clients, args.Error(1)
}

func (m *MockService) Connect(ctx context.Context, clientID string, handle registry.Handle) error {
	args := m.Called(ctx, clientID, handle)

	return args.Error(0)
}

func (m *MockService) Disconnect(ctx context.Context, clientID string, handle registry.Handle) error {
	args := m.Called(ctx, clientID, handle)

	return args.Error(0)
}

func (m *MockService) StartRound(ctx context.Context) (round.StartReport, error) {
	args := m.Called(ctx)

	return args.Get(0).(round.StartReport), args.Error(1)
}

func (m *MockService) CloseCollectionAndAggregate(ctx context.Context) (fl.Checkpoint, error) {
	args := m.Called(ctx)

	return args.Get(0).(fl.Checkpoint), args.Error(1)
}

func (m *MockService) RoundStatus(ctx context.Context) (round.Status, error) {
	args := m.Called(ctx)

	return args.Get(0).(round.Status), args.Error(1)
}

func (m *MockService) SubmitUpdate(ctx context.Context, sub fl.Submission) error {
	args := m.Called(ctx, sub)

	return args.Error(0)
}

func (m *MockService) SubmitUpdateCBOR(ctx context.Context, roundNum uint64, clientID string, data []byte) error {
	args := m.Called(ctx, roundNum, clientID, data)

	return args.Error(0)
}

func (m *MockService) GetCheckpoint(ctx context.Context, roundNum *uint64) (fl.Checkpoint, error) {
	args := m.Called(ctx, roundNum)

	return args.Get(0).(fl.Checkpoint), args.Error(1)
}

func (m *MockService) ExportCheckpoint(ctx context.Context, roundNum *uint64, format checkpoint.Format) ([]byte, error) {
	args := m.Called(ctx, roundNum, format)
	data, _ := args.Get(0).([]byte)

	return data, args.Error(1)
}

func (m *MockService) Subscribe(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
