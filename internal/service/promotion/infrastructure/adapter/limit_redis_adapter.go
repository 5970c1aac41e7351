package adapter

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"flashmall/internal/pkg/redis"
	"flashmall/internal/service/promotion/domain"
)

const (
	limitReserveScriptName = "limit_reserve"
	limitReleaseScriptName = "limit_release"
)

// 读当前值、判 current+qty <= limit、INCRBY 必须在脚本内一次完成，
// 分步执行会被并发请求穿透限购。
const limitReserveScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local qty = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
if current + qty > limit then
    return 0
end
redis.call('INCRBY', KEYS[1], qty)
return 1
`

// 归还量以台账余额为下限截断，台账不会出现负数。
const limitReleaseScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local qty = tonumber(ARGV[1])
if qty > current then
    qty = current
end
if qty > 0 then
    redis.call('DECRBY', KEYS[1], qty)
end
return qty
`

// LimitRedisAdapter 是 port.LimitLedger 的 Redis 实现。
type LimitRedisAdapter struct {
	redisClient *redis.Client
}

// NewLimitRedisAdapter 创建限购台账适配器，创建时加载所需 Lua 脚本。
func NewLimitRedisAdapter(redisClient *redis.Client) (*LimitRedisAdapter, error) {
	if err := redisClient.LoadScriptFromContent(limitReserveScriptName, limitReserveScript); err != nil {
		return nil, fmt.Errorf("load limit reserve script: %w", err)
	}
	if err := redisClient.LoadScriptFromContent(limitReleaseScriptName, limitReleaseScript); err != nil {
		return nil, fmt.Errorf("load limit release script: %w", err)
	}
	return &LimitRedisAdapter{redisClient: redisClient}, nil
}

func limitKey(goodsID, userID int64) string {
	return fmt.Sprintf("promo:limit:{%d}:%d", goodsID, userID)
}

func (a *LimitRedisAdapter) Reserve(ctx context.Context, goodsID, userID, qty, limit int64) error {
	if limit <= 0 {
		return nil
	}

	result, err := a.redisClient.RunScript(ctx, limitReserveScriptName, []string{limitKey(goodsID, userID)}, qty, limit)
	if err != nil {
		return fmt.Errorf("limit ledger reserve: %w", err)
	}

	code, ok := result.(int64)
	if !ok {
		return fmt.Errorf("unexpected result type from limit script: %T", result)
	}
	if code == 0 {
		return errors.WithStack(domain.ErrLimitExceeded)
	}
	return nil
}

func (a *LimitRedisAdapter) Release(ctx context.Context, goodsID, userID, qty int64) error {
	_, err := a.redisClient.RunScript(ctx, limitReleaseScriptName, []string{limitKey(goodsID, userID)}, qty)
	if err != nil {
		return fmt.Errorf("limit ledger release: %w", err)
	}
	return nil
}
