package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jlh-tonga/meds/internal/notification"
	"github.com/jlh-tonga/meds/internal/service"
	"github.com/jlh-tonga/meds/internal/storage"
)

// MockNotificationService is a mock implementation of service.NotificationService.
type MockNotificationService struct {
	mock.Mock
}

//nolint:revive
func (m *MockNotificationService) SendReport(ctx context.Context, req service.SendRequest) (notification.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(notification.Result), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) SendPending(ctx context.Context, header string) (*notification.Result, error) {
	args := m.Called(ctx, header)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Result), args.Error(1)
}

//nolint:revive
func (m *MockNotificationService) TestNotification(ctx context.Context, recipients []string) notification.Result {
	args := m.Called(ctx, recipients)
	return args.Get(0).(notification.Result)
}

//nolint:revive
func (m *MockNotificationService) ListLog(ctx context.Context, limit int) ([]storage.NotificationLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.NotificationLogEntry), args.Error(1)
}
