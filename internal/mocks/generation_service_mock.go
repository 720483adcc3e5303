package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyvideo-server/internal/service"
	"storyvideo-server/internal/worker"
	"storyvideo-server/shared/models"
)

// MockGenerationService is a mock type for the worker.GenerationService type
type MockGenerationService struct {
	mock.Mock
}

func (_m *MockGenerationService) PlanScene(ctx context.Context, req service.PlanSceneRequest) (*service.PlanSceneResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *service.PlanSceneResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.PlanSceneResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockGenerationService) PlanStory(ctx context.Context, req service.PlanStoryRequest) (*service.PlanStoryResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *service.PlanStoryResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.PlanStoryResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockGenerationService) GenerateImage(ctx context.Context, req service.ImageGenRequest) (*service.ImageGenResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *service.ImageGenResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.ImageGenResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockGenerationService) GenerateVideo(ctx context.Context, req service.VideoGenRequest) (*service.VideoGenResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *service.VideoGenResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.VideoGenResult)
	}
	return r0, ret.Error(1)
}

// NewMockGenerationService creates a new instance of MockGenerationService.
func NewMockGenerationService(t interface {
	mock.TestingT
	Helper()
}) *MockGenerationService {
	m := &MockGenerationService{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ worker.GenerationService = (*MockGenerationService)(nil)

// MockChainRunner is a mock type for the worker.ChainRunner type
type MockChainRunner struct {
	mock.Mock
}

func (_m *MockChainRunner) Run(ctx context.Context, req service.StoryChainRequest) (*models.StoryChainResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *models.StoryChainResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.StoryChainResult)
	}
	return r0, ret.Error(1)
}

// NewMockChainRunner creates a new instance of MockChainRunner.
func NewMockChainRunner(t interface {
	mock.TestingT
	Helper()
}) *MockChainRunner {
	m := &MockChainRunner{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ worker.ChainRunner = (*MockChainRunner)(nil)
