package testutil

import (
	"context"

	"github.com/haatos/simple-release/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) CreateProject(
	ctx context.Context,
	repository, workingPath, manifestFile string,
	credentialID *int64,
) (*store.Project, error) {
	args := m.Called(ctx, repository, workingPath, manifestFile, credentialID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Project), args.Error(1)
}

func (m *MockProjectService) UpdateProject(
	ctx context.Context,
	id int64,
	workingPath, manifestFile string,
	credentialID *int64,
) error {
	args := m.Called(ctx, id, workingPath, manifestFile, credentialID)
	return args.Error(0)
}

func (m *MockProjectService) DeleteProject(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProjectService) GetProjectByID(ctx context.Context, id int64) (*store.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Project), args.Error(1)
}

func (m *MockProjectService) ListProjects(ctx context.Context) ([]*store.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*store.Project), args.Error(1)
}
