package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyvideo-server/internal/provider"
)

// MockMediaGenerator is a mock type for the provider.MediaGenerator type
type MockMediaGenerator struct {
	mock.Mock
}

func (_m *MockMediaGenerator) GenerateImage(ctx context.Context, req provider.ImageRequest) (*provider.MediaResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *provider.MediaResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*provider.MediaResult)
	}
	return r0, ret.Error(1)
}

func (_m *MockMediaGenerator) GenerateVideo(ctx context.Context, req provider.VideoRequest) (*provider.MediaResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *provider.MediaResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*provider.MediaResult)
	}
	return r0, ret.Error(1)
}

// NewMockMediaGenerator creates a new instance of MockMediaGenerator.
func NewMockMediaGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockMediaGenerator {
	m := &MockMediaGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ provider.MediaGenerator = (*MockMediaGenerator)(nil)
