package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyvideo-server/internal/provider"
)

// MockTextGenerator is a mock type for the provider.TextGenerator type
type MockTextGenerator struct {
	mock.Mock
}

func (_m *MockTextGenerator) GenerateText(ctx context.Context, userID, systemPrompt, userInput string) (*provider.TextResult, error) {
	ret := _m.Called(ctx, userID, systemPrompt, userInput)

	var r0 *provider.TextResult
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*provider.TextResult)
	}
	return r0, ret.Error(1)
}

// NewMockTextGenerator creates a new instance of MockTextGenerator.
func NewMockTextGenerator(t interface {
	mock.TestingT
	Helper()
}) *MockTextGenerator {
	m := &MockTextGenerator{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ provider.TextGenerator = (*MockTextGenerator)(nil)
