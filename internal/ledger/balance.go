package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"storyvideo-server/shared/models"
)

// postgresBalanceReader читает кредитные балансы из PostgreSQL.
// Таблицу наполняет внешний биллинг-сервис, ядро её только читает.
type postgresBalanceReader struct {
	db *pgxpool.Pool
}

func NewPostgresBalanceReader(db *pgxpool.Pool) *postgresBalanceReader {
	return &postgresBalanceReader{db: db}
}

func (r *postgresBalanceReader) GetBalance(ctx context.Context, userID string) (*models.CreditBalance, error) {
	var bal models.CreditBalance
	query := `SELECT balance, currency FROM credit_balances WHERE user_id = $1`
	if err := pgxscan.Get(ctx, r.db, &bal, query, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrBalanceNotFound
		}
		return nil, fmt.Errorf("ошибка чтения баланса пользователя %s: %w", userID, err)
	}
	return &bal, nil
}
