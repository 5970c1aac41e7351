package port

import "context"

// GroupLocker 按团长记录 ID 串行化临界区。
//
// "统计 Pending 数 + 达到成团人数即翻转" 必须和并发入团互斥，
// 否则两个几乎同时到达的入团都可能观察到 count == groupCount-1
// 并各自触发成团。入团、取消、过期清扫都走同一把锁。
//
// 锁序约定：库存动作是行级条件更新，本身不取锁，
// 持有团长锁期间可以直接调用，不存在锁嵌套。
type GroupLocker interface {
	// WithLock 在持有 leaderID 对应的锁期间执行 fn。
	WithLock(ctx context.Context, leaderID int64, fn func(ctx context.Context) error) error
}
