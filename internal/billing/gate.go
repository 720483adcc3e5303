package billing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"storyvideo-server/shared/models"
)

// BalanceReader отдаёт текущий баланс пользователя.
// Реализуется постгрес-репозиторием и redis-кешем поверх него.
type BalanceReader interface {
	GetBalance(ctx context.Context, userID string) (*models.CreditBalance, error)
}

// Gate — консультативная проверка кредитов перед оплачиваемым вызовом.
// Проверка и фактическое списание разнесены во времени и НЕ атомарны:
// параллельные генерации одного пользователя могут обе пройти проверку и
// увести баланс в минус. Это осознанное поведение, окончательный расчёт
// делает внешний биллинг.
type Gate struct {
	balances BalanceReader
	log      *zap.Logger
}

func NewGate(balances BalanceReader, log *zap.Logger) *Gate {
	return &Gate{balances: balances, log: log}
}

// Check сверяет оценочную стоимость с доступным балансом.
// Возвращает *InsufficientCreditsError, когда средств не хватает.
func (g *Gate) Check(ctx context.Context, userID string, estimatedCostMXN float64) error {
	bal, err := g.balances.GetBalance(ctx, userID)
	if err != nil {
		return fmt.Errorf("credit gate: reading balance for user %s: %w", userID, err)
	}
	if bal.Balance < estimatedCostMXN {
		g.log.Info("generation rejected by credit gate",
			zap.String("user_id", userID),
			zap.Float64("required_mxn", estimatedCostMXN),
			zap.Float64("available_mxn", bal.Balance))
		return &models.InsufficientCreditsError{
			Required:  estimatedCostMXN,
			Available: bal.Balance,
			Currency:  bal.Currency,
		}
	}
	return nil
}
