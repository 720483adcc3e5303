package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyvideo-server/internal/service"
)

// MockSegmentGenerator is a mock type for the service.SegmentGenerator type
type MockSegmentGenerator struct {
	mock.Mock
}

func (_m *MockSegmentGenerator) GenerateVideo(ctx context.Context, req service.VideoGenRequest) (*service.VideoGenResult, error) {
	ret := _m.Called(ctx, req)

	var r0 *service.VideoGenResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*service.VideoGenResult)
	}
	return r0, ret.Error(1)
}

// NewMockSegmentGenerator creates a new instance of MockSegmentGenerator.
func NewMockSegmentGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockSegmentGenerator {
	m := &MockSegmentGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.SegmentGenerator = (*MockSegmentGenerator)(nil)
