package domain

import (
	"context"
	"time"
)

// ActivityRepository 活动仓储。所有读方法都过滤软删除记录。
type ActivityRepository interface {
	Create(ctx context.Context, activity *Activity) error
	FindByID(ctx context.Context, id int64) (*Activity, error)
	// ExistsByName 判断是否存在同名的未删除活动。
	ExistsByName(ctx context.Context, name string) (bool, error)
	Update(ctx context.Context, activity *Activity) error
	// UpdateStatus 条件更新：仅当当前状态为 from 时写入 to，返回是否命中。
	// 状态重算在多个读路径和清扫器上并发发生，条件更新保证幂等。
	UpdateStatus(ctx context.Context, id int64, from, to ActivityStatus) (bool, error)
	SoftDelete(ctx context.Context, id int64) error
	List(ctx context.Context, kind ActivityKind, offset, limit int) ([]*Activity, error)
	// FindStale 找出状态与时间窗口不一致的活动，供清扫器批量重算。
	FindStale(ctx context.Context, now time.Time, limit int) ([]*Activity, error)
}

// GoodsRepository 促销商品仓储。
// ReserveStock / ReleaseStock 是库存唯一的变更入口，
// 必须实现为单条原子条件更新（数据库 UPDATE ... WHERE stock >= ?，
// 或内存实现里按商品加锁的 CAS），读改写两步是超卖缺陷。
type GoodsRepository interface {
	Create(ctx context.Context, goods *Goods) error
	FindByID(ctx context.Context, id int64) (*Goods, error)
	ListByActivity(ctx context.Context, activityID int64) ([]*Goods, error)

	// ReserveStock 原子执行 stock -= qty; soldCount += qty。
	// 库存不足时返回 ErrStockInsufficient 且无任何副作用。
	ReserveStock(ctx context.Context, goodsID, qty int64) error

	// ReleaseStock 反向操作，按 soldCount 截断，
	// 保证 stock 不会超过初始库存。多还属于调用方缺陷，但不会破坏状态。
	ReleaseStock(ctx context.Context, goodsID, qty int64) error
}

// GroupOrderRepository 拼团单仓储。
type GroupOrderRepository interface {
	Create(ctx context.Context, order *GroupOrder) error
	FindByID(ctx context.Context, id int64) (*GroupOrder, error)
	FindByOrderID(ctx context.Context, orderID string) (*GroupOrder, error)
	// ListPendingByLeader 返回挂在团长下的全部 Pending 记录，含团长自身。
	ListPendingByLeader(ctx context.Context, leaderID int64) ([]*GroupOrder, error)
	// CountActiveByMember 统计某成员在该团下的 Pending/Success 记录数，
	// 用于"同一成员至多一条在途记录"校验。
	CountActiveByMember(ctx context.Context, leaderID, memberID int64) (int64, error)
	// FinalizeGroup 把挂在团长下（含团长）的所有 Pending 记录
	// 原子翻转为 Success 并盖上成团时间，返回翻转条数。
	FinalizeGroup(ctx context.Context, leaderID int64, successTime time.Time) (int64, error)
	// TransitionStatus 条件状态流转，幂等补偿的基础：
	// 仅当当前状态为 from 时写入 to，返回是否命中。
	TransitionStatus(ctx context.Context, id int64, from, to GroupOrderStatus) (bool, error)
	// MarkStockReleased 在库存归还成功后盖标记，
	// 补偿重放据此跳过已经还清的记录。
	MarkStockReleased(ctx context.Context, id int64) error
	// FindExpiredPendingLeaders 找出已过成团截止时间仍 Pending 的团长记录。
	FindExpiredPendingLeaders(ctx context.Context, now time.Time, limit int) ([]*GroupOrder, error)
}
