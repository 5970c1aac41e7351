package adapter

import (
	"context"
	"fmt"

	"flashmall/internal/pkg/zookeeper"
)

// GroupZkLocker 是 port.GroupLocker 的 ZooKeeper 实现。
// 每个团长 ID 对应一个锁节点，多实例部署时串行化同一个团的变更。
type GroupZkLocker struct {
	conn *zookeeper.Conn
}

func NewGroupZkLocker(conn *zookeeper.Conn) *GroupZkLocker {
	return &GroupZkLocker{conn: conn}
}

func (l *GroupZkLocker) WithLock(ctx context.Context, leaderID int64, fn func(ctx context.Context) error) error {
	lock, err := zookeeper.NewDistributedLock(l.conn, fmt.Sprintf("group-leader-%d", leaderID))
	if err != nil {
		return fmt.Errorf("create group lock: %w", err)
	}
	if err := lock.Lock(ctx); err != nil {
		return fmt.Errorf("acquire group lock: %w", err)
	}
	defer lock.Unlock()

	return fn(ctx)
}
