package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jlh-tonga/meds/internal/storage"
)

// MockObservationService is a mock implementation of service.ObservationService.
type MockObservationService struct {
	mock.Mock
}

//nolint:revive
func (m *MockObservationService) Save(ctx context.Context, fields map[string]any) (*storage.Observation, error) {
	args := m.Called(ctx, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Observation), args.Error(1)
}

//nolint:revive
func (m *MockObservationService) Get(ctx context.Context, id string) (*storage.Observation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Observation), args.Error(1)
}

//nolint:revive
func (m *MockObservationService) List(ctx context.Context, filter storage.ObservationFilter) ([]*storage.Observation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.Observation), args.Error(1)
}

//nolint:revive
func (m *MockObservationService) RenderLine(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}
