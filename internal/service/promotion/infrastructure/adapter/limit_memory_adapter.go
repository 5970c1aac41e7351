package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"flashmall/internal/service/promotion/domain"
)

// LimitMemoryAdapter 是 port.LimitLedger 的进程内实现，
// 供单机部署和测试使用。
type LimitMemoryAdapter struct {
	mu      sync.Mutex
	counter map[string]int64
}

func NewLimitMemoryAdapter() *LimitMemoryAdapter {
	return &LimitMemoryAdapter{counter: make(map[string]int64)}
}

func memoryLimitKey(goodsID, userID int64) string {
	return fmt.Sprintf("%d:%d", goodsID, userID)
}

func (a *LimitMemoryAdapter) Reserve(_ context.Context, goodsID, userID, qty, limit int64) error {
	if limit <= 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	key := memoryLimitKey(goodsID, userID)
	if a.counter[key]+qty > limit {
		return errors.WithStack(domain.ErrLimitExceeded)
	}
	a.counter[key] += qty
	return nil
}

func (a *LimitMemoryAdapter) Release(_ context.Context, goodsID, userID, qty int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := memoryLimitKey(goodsID, userID)
	if qty > a.counter[key] {
		qty = a.counter[key]
	}
	a.counter[key] -= qty
	return nil
}
