package adapter

import (
	"context"
	"sync"
)

// GroupLocalLocker 是 port.GroupLocker 的进程内实现，
// 单实例部署和测试时替代 ZooKeeper。
// 锁对象一旦创建不回收；团长 ID 规模有限，泄漏可以接受。
type GroupLocalLocker struct {
	locks sync.Map // leaderID -> *sync.Mutex
}

func NewGroupLocalLocker() *GroupLocalLocker {
	return &GroupLocalLocker{}
}

func (l *GroupLocalLocker) WithLock(ctx context.Context, leaderID int64, fn func(ctx context.Context) error) error {
	actual, _ := l.locks.LoadOrStore(leaderID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)

	mu.Lock()
	defer mu.Unlock()

	return fn(ctx)
}
