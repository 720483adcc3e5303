package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyvideo-server/internal/billing"
	"storyvideo-server/shared/models"
)

// MockBalanceReader is a mock type for the billing.BalanceReader type
type MockBalanceReader struct {
	mock.Mock
}

func (_m *MockBalanceReader) GetBalance(ctx context.Context, userID string) (*models.CreditBalance, error) {
	ret := _m.Called(ctx, userID)

	var r0 *models.CreditBalance
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.CreditBalance)
	}
	return r0, ret.Error(1)
}

// NewMockBalanceReader creates a new instance of MockBalanceReader.
func NewMockBalanceReader(t interface {
	mock.TestingT
	Helper()
}) *MockBalanceReader {
	m := &MockBalanceReader{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ billing.BalanceReader = (*MockBalanceReader)(nil)
