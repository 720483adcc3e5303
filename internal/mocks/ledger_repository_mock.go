package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storyvideo-server/internal/ledger"
	"storyvideo-server/shared/models"
)

// MockLedgerRepository is a mock type for the ledger.Repository type
type MockLedgerRepository struct {
	mock.Mock
}

func (_m *MockLedgerRepository) Create(ctx context.Context, meta models.GenerationMeta) (*models.GenerationRecord, error) {
	ret := _m.Called(ctx, meta)

	var r0 *models.GenerationRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GenerationRecord)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedgerRepository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *MockLedgerRepository) Complete(ctx context.Context, id uuid.UUID, out models.GenerationOutput) error {
	ret := _m.Called(ctx, id, out)
	return ret.Error(0)
}

func (_m *MockLedgerRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string, elapsedSeconds float64) error {
	ret := _m.Called(ctx, id, errorMessage, elapsedSeconds)
	return ret.Error(0)
}

func (_m *MockLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationRecord, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.GenerationRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GenerationRecord)
	}
	return r0, ret.Error(1)
}

func (_m *MockLedgerRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.GenerationRecord, error) {
	ret := _m.Called(ctx, userID, limit, offset)

	var r0 []*models.GenerationRecord
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]*models.GenerationRecord)
	}
	return r0, ret.Error(1)
}

// NewMockLedgerRepository creates a new instance of MockLedgerRepository.
func NewMockLedgerRepository(t interface {
	mock.TestingT
	Helper()
}) *MockLedgerRepository {
	m := &MockLedgerRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ ledger.Repository = (*MockLedgerRepository)(nil)
