package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/promo_locks"

// DistributedLock 基于临时顺序节点的互斥锁。
// 每个资源一个父节点，加锁方创建顺序子节点，序号最小者持锁，
// 其余 watch 前驱节点，避免惊群。
type DistributedLock struct {
	conn     *Conn
	path     string
	lockNode string
}

// NewDistributedLock 创建指向某个资源的锁对象。
func NewDistributedLock(conn *Conn, resourceID string) (*DistributedLock, error) {
	for _, p := range []string{lockRoot, lockRoot + "/" + resourceID} {
		exists, _, err := conn.Exists(p)
		if err != nil {
			return nil, fmt.Errorf("check lock node %s: %w", p, err)
		}
		if exists {
			continue
		}
		if _, err := conn.Create(p, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && err != zk.ErrNodeExists {
			return nil, fmt.Errorf("create lock node %s: %w", p, err)
		}
	}

	return &DistributedLock{
		conn: conn,
		path: lockRoot + "/" + resourceID,
	}, nil
}

// parseSeq 取节点名末尾的序号。CreateProtectedEphemeralSequential
// 生成的名字形如 _c_<guid>-lock-<序号>，按字符串排序会排在随机 guid 上，
// 持锁判定必须比较解析出的序号。
func parseSeq(node string) (int, error) {
	idx := strings.LastIndex(node, "-")
	if idx < 0 || idx == len(node)-1 {
		return 0, fmt.Errorf("malformed lock node name %q", node)
	}
	seq, err := strconv.Atoi(node[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("malformed lock node name %q: %w", node, err)
	}
	return seq, nil
}

// lockPrev 按序号判定 myNode 是否为最小（即持锁），
// 未持锁时返回序号紧邻其前的节点名，供 watch 使用。
func lockPrev(children []string, myNode string) (held bool, prev string, err error) {
	mySeq, err := parseSeq(myNode)
	if err != nil {
		return false, "", err
	}

	found := false
	prevSeq := -1
	for _, child := range children {
		if child == myNode {
			found = true
			continue
		}
		seq, err := parseSeq(child)
		if err != nil {
			return false, "", err
		}
		if seq < mySeq && seq > prevSeq {
			prevSeq = seq
			prev = child
		}
	}
	if !found {
		return false, "", errors.New("own lock node missing from children")
	}
	return prevSeq == -1, prev, nil
}

// Lock 阻塞直到获得锁或 ctx 结束。
func (l *DistributedLock) Lock(ctx context.Context) error {
	nodePath, err := l.conn.CreateProtectedEphemeralSequential(l.path+"/lock-", []byte(""), zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("create sequential node: %w", err)
	}
	l.lockNode = nodePath

	myNode := strings.TrimPrefix(l.lockNode, l.path+"/")
	for {
		children, _, err := l.conn.Children(l.path)
		if err != nil {
			return fmt.Errorf("list lock children: %w", err)
		}

		held, prev, err := lockPrev(children, myNode)
		if err != nil {
			return err
		}
		if held {
			return nil
		}

		// watch 序号前驱，它释放后重新竞争
		_, _, eventChan, err := l.conn.ExistsW(l.path + "/" + prev)
		if err != nil {
			// 前驱刚好释放，直接重试
			if err == zk.ErrNoNode {
				continue
			}
			return fmt.Errorf("watch previous node: %w", err)
		}

		select {
		case event := <-eventChan:
			if event.Type == zk.EventNodeDeleted {
				continue
			}
		case <-ctx.Done():
			// 放弃排队，删掉自己的节点，避免占坑
			_ = l.conn.Delete(l.lockNode, -1)
			l.lockNode = ""
			return ctx.Err()
		}
	}
}

// Unlock 释放锁。
func (l *DistributedLock) Unlock() error {
	if l.lockNode == "" {
		return errors.New("no lock to unlock")
	}
	err := l.conn.Delete(l.lockNode, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("delete lock node: %w", err)
	}
	l.lockNode = ""
	return nil
}
