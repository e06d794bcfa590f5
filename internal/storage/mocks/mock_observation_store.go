package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/jlh-tonga/meds/internal/storage"
)

// MockObservationStore is a mock implementation of storage.ObservationStore.
type MockObservationStore struct {
	mock.Mock
}

//nolint:revive
func (m *MockObservationStore) CreateObservation(ctx context.Context, obs *storage.Observation) error {
	args := m.Called(ctx, obs)
	return args.Error(0)
}

//nolint:revive
func (m *MockObservationStore) GetObservation(ctx context.Context, id string) (*storage.Observation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Observation), args.Error(1)
}

//nolint:revive
func (m *MockObservationStore) ListObservations(ctx context.Context, filter storage.ObservationFilter) ([]*storage.Observation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*storage.Observation), args.Error(1)
}

//nolint:revive
func (m *MockObservationStore) MarkNotified(ctx context.Context, at time.Time, ids ...string) (int, error) {
	args := m.Called(ctx, at, ids)
	return args.Int(0), args.Error(1)
}
