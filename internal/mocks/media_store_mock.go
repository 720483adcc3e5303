package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyvideo-server/internal/service"
)

// MockMediaStore is a mock type for the service.MediaStore type
type MockMediaStore struct {
	mock.Mock
}

func (_m *MockMediaStore) Save(ctx context.Context, key string, data []byte, mimeType string) (string, error) {
	ret := _m.Called(ctx, key, data, mimeType)
	return ret.String(0), ret.Error(1)
}

func (_m *MockMediaStore) Load(ctx context.Context, key string) ([]byte, error) {
	ret := _m.Called(ctx, key)

	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

// NewMockMediaStore creates a new instance of MockMediaStore.
func NewMockMediaStore(t interface {
	mock.TestingT
	Helper()
}) *MockMediaStore {
	m := &MockMediaStore{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ service.MediaStore = (*MockMediaStore)(nil)
