package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storyvideo-server/shared/models"
)

// balanceSource — источник балансов, который кеш оборачивает.
type balanceSource interface {
	GetBalance(ctx context.Context, userID string) (*models.CreditBalance, error)
}

// RedisBalanceCache — read-through кеш балансов поверх PostgreSQL.
// Баланс консультативный, небольшое устаревание допустимо, поэтому
// короткий TTL вместо инвалидации. Ошибки Redis не фатальны: кеш
// деградирует до прямого чтения из источника.
type RedisBalanceCache struct {
	rdb    *redis.Client
	source balanceSource
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedisBalanceCache(rdb *redis.Client, source balanceSource, ttl time.Duration, log *zap.Logger) *RedisBalanceCache {
	return &RedisBalanceCache{
		rdb:    rdb,
		source: source,
		ttl:    ttl,
		log:    log.With(zap.String("component", "balance_cache")),
	}
}

func balanceKey(userID string) string { return "balance:" + userID }

func (c *RedisBalanceCache) GetBalance(ctx context.Context, userID string) (*models.CreditBalance, error) {
	raw, err := c.rdb.Get(ctx, balanceKey(userID)).Bytes()
	if err == nil {
		var bal models.CreditBalance
		if jsonErr := json.Unmarshal(raw, &bal); jsonErr == nil {
			return &bal, nil
		}
		// Битая запись в кеше: читаем источник и перезаписываем.
		c.log.Warn("corrupt balance cache entry", zap.String("user_id", userID))
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("redis unavailable, falling back to source", zap.Error(err))
	}

	bal, err := c.source.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(bal); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, balanceKey(userID), data, c.ttl).Err(); setErr != nil {
			c.log.Warn("failed to cache balance", zap.Error(setErr))
		}
	}
	return bal, nil
}
