package adapter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"flashmall/internal/service/promotion/domain"
)

func TestLimitMemoryAdapterReserve(t *testing.T) {
	ledger := NewLimitMemoryAdapter()
	ctx := context.Background()

	if err := ledger.Reserve(ctx, 1, 10, 2, 3); err != nil {
		t.Fatalf("first reserve: %v", err)
	}
	if err := ledger.Reserve(ctx, 1, 10, 1, 3); err != nil {
		t.Fatalf("second reserve: %v", err)
	}
	if err := ledger.Reserve(ctx, 1, 10, 1, 3); !errors.Is(err, domain.ErrLimitExceeded) {
		t.Errorf("over-limit err = %v; want ErrLimitExceeded", err)
	}

	// 不同用户、不同商品互不影响
	if err := ledger.Reserve(ctx, 1, 11, 3, 3); err != nil {
		t.Errorf("other user: %v", err)
	}
	if err := ledger.Reserve(ctx, 2, 10, 3, 3); err != nil {
		t.Errorf("other goods: %v", err)
	}
}

func TestLimitMemoryAdapterZeroLimitUnbounded(t *testing.T) {
	ledger := NewLimitMemoryAdapter()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		if err := ledger.Reserve(ctx, 1, 10, 1, 0); err != nil {
			t.Fatalf("reserve %d with limit 0: %v", i, err)
		}
	}
}

func TestLimitMemoryAdapterReleaseFloorsAtZero(t *testing.T) {
	ledger := NewLimitMemoryAdapter()
	ctx := context.Background()

	if err := ledger.Reserve(ctx, 1, 10, 2, 5); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Release(ctx, 1, 10, 100); err != nil {
		t.Fatalf("Release: %v", err)
	}
	// 归还下探到 0 之后额度重新可用
	if err := ledger.Reserve(ctx, 1, 10, 5, 5); err != nil {
		t.Errorf("reserve after floor release: %v", err)
	}
}

func TestLimitMemoryAdapterConcurrent(t *testing.T) {
	ledger := NewLimitMemoryAdapter()
	ctx := context.Background()

	const limit = 10
	const workers = 100

	var success int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if err := ledger.Reserve(ctx, 1, 10, 1, limit); err == nil {
				atomic.AddInt64(&success, 1)
			}
		}()
	}
	wg.Wait()

	if success != limit {
		t.Errorf("successful reserves = %d; want exactly %d", success, limit)
	}
}
