package provider

import (
	"context"
	"time"

	"storyvideo-server/shared/models"
)

// RetryPolicy описывает повторение неудачных вызовов провайдера.
// Задержка растёт линейно: BaseDelay, 2*BaseDelay, ...
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep подменяется в тестах. nil означает реальное ожидание.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy — три попытки с базовой секундной задержкой.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do выполняет op с повторами по политике. Ошибка классифицируется после
// каждой попытки: неретраябельные виды (авторизация, модерация) прерывают
// цикл сразу, отмена контекста тоже. Возвращаемая ошибка всегда
// *models.ProviderError.
func Do[T any](ctx context.Context, policy RetryPolicy, operation string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr *models.ProviderError
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = classify(err)
		log.Warn().
			Str("operation", operation).
			Int("attempt", attempt).
			Int("max_attempts", attempts).
			Str("kind", string(lastErr.Kind)).
			Msg(lastErr.Message)

		if !lastErr.Retryable() {
			return zero, lastErr
		}
		if attempt == attempts {
			break
		}
		if sleepErr := policy.sleep(ctx, policy.BaseDelay*time.Duration(attempt)); sleepErr != nil {
			return zero, classify(sleepErr)
		}
	}
	return zero, lastErr
}
