package port

import "context"

// LimitLedger 秒杀限购台账：按 (商品, 用户) 记录累计预占数量。
//
// Reserve 需要原子地完成"读取当前值、校验 current+qty <= limit、累加"，
// Redis 实现用 Lua 脚本，内存实现持锁完成。
// 限购按单个商品计，不跨活动汇总。
type LimitLedger interface {
	// Reserve 预占额度，超限返回 domain.ErrLimitExceeded 且不产生副作用。
	// limit <= 0 表示不限购，直接放行。
	Reserve(ctx context.Context, goodsID, userID, qty, limit int64) error
	// Release 归还额度，下探到 0 为止。用于库存预占失败时的回滚。
	Release(ctx context.Context, goodsID, userID, qty int64) error
}
