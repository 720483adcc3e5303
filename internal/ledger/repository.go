package ledger

import (
	"context"

	"github.com/google/uuid"

	"storyvideo-server/shared/models"
)

// Repository определяет методы журнала генераций.
// Переходы статусов строго односторонние:
// pending -> processing -> completed | failed.
// Запись в конечном статусе неизменяема, попытка перевода возвращает
// models.ErrRecordImmutable.
type Repository interface {
	// Create регистрирует намерение сделать оплачиваемый вызов (статус pending).
	Create(ctx context.Context, meta models.GenerationMeta) (*models.GenerationRecord, error)
	// MarkProcessing переводит запись в processing в момент выдачи вызова провайдеру.
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	// Complete фиксирует успешный результат и фактическую стоимость.
	Complete(ctx context.Context, id uuid.UUID, out models.GenerationOutput) error
	// Fail фиксирует ошибку; запись остаётся в журнале навсегда.
	Fail(ctx context.Context, id uuid.UUID, errorMessage string, elapsedSeconds float64) error
	// GetByID возвращает запись или models.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationRecord, error)
	// ListByUser возвращает записи пользователя, новые первыми.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.GenerationRecord, error)
}
