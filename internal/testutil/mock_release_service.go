package testutil

import (
	"context"

	"github.com/haatos/simple-release/internal/service"
	"github.com/haatos/simple-release/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockReleaseService struct {
	mock.Mock
}

func (m *MockReleaseService) CreateRelease(
	ctx context.Context,
	projectID int64,
	tag string,
) (*store.Release, error) {
	args := m.Called(ctx, projectID, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Release), args.Error(1)
}

func (m *MockReleaseService) TriggerRelease(
	ctx context.Context,
	repository, tag string,
) (*store.Release, error) {
	args := m.Called(ctx, repository, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Release), args.Error(1)
}

func (m *MockReleaseService) GetReleaseByID(ctx context.Context, id int64) (*store.Release, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Release), args.Error(1)
}

func (m *MockReleaseService) ListProjectReleases(
	ctx context.Context,
	projectID, limit int64,
) ([]*store.Release, error) {
	args := m.Called(ctx, projectID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Release), args.Error(1)
}

func (m *MockReleaseService) SubscribeRelease(
	releaseID int64,
	uid string,
) (<-chan service.ReleaseEvent, func()) {
	args := m.Called(releaseID, uid)
	return args.Get(0).(<-chan service.ReleaseEvent), args.Get(1).(func())
}
