package application

import (
	"context"
	"sync/atomic"
	"testing"

	"flashmall/internal/service/promotion/domain"
)

// flakyGoodsRepo 前 failures 次归还失败，之后转交真实仓储。
type flakyGoodsRepo struct {
	*fakeGoodsRepo
	failures int32
}

func (r *flakyGoodsRepo) ReleaseStock(ctx context.Context, goodsID, qty int64) error {
	if atomic.AddInt32(&r.failures, -1) >= 0 {
		return context.DeadlineExceeded
	}
	return r.fakeGoodsRepo.ReleaseStock(ctx, goodsID, qty)
}

func TestCompensatorCancelReleasesStock(t *testing.T) {
	goodsRepo := newFakeGoodsRepo()
	orders := newFakeGroupOrderRepo()
	comp := NewCompensator(goodsRepo, orders, testTracer())
	ctx := context.Background()

	g := &domain.Goods{Stock: 10}
	if err := goodsRepo.Create(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := goodsRepo.ReserveStock(ctx, g.ID, 2); err != nil {
		t.Fatal(err)
	}
	order := &domain.GroupOrder{GoodsID: g.ID, OrderID: "ord-1", Role: domain.RoleLeader, Quantity: 2}
	if err := orders.Create(ctx, order); err != nil {
		t.Fatal(err)
	}

	if err := comp.Cancel(ctx, order); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if order.Status != domain.GroupCancelled {
		t.Errorf("status = %v; want Cancelled", order.Status)
	}
	cur, _ := goodsRepo.FindByID(ctx, g.ID)
	if cur.Stock != 10 {
		t.Errorf("stock = %d; want 10", cur.Stock)
	}
}

func TestCompensatorIdempotent(t *testing.T) {
	goodsRepo := newFakeGoodsRepo()
	orders := newFakeGroupOrderRepo()
	comp := NewCompensator(goodsRepo, orders, testTracer())
	ctx := context.Background()

	g := &domain.Goods{Stock: 10}
	if err := goodsRepo.Create(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := goodsRepo.ReserveStock(ctx, g.ID, 1); err != nil {
		t.Fatal(err)
	}
	order := &domain.GroupOrder{GoodsID: g.ID, OrderID: "ord-1", Quantity: 1}
	if err := orders.Create(ctx, order); err != nil {
		t.Fatal(err)
	}

	if err := comp.Expire(ctx, order); err != nil {
		t.Fatal(err)
	}
	// 同一条记录再补偿一次：状态流转不命中，库存不能二次归还
	stale := *order
	stale.Status = domain.GroupPending
	if err := comp.Expire(ctx, &stale); err != nil {
		t.Errorf("second expire err = %v; want nil", err)
	}

	cur, _ := goodsRepo.FindByID(ctx, g.ID)
	if cur.Stock != 10 || cur.SoldCount != 0 {
		t.Errorf("counters = %d/%d; want 10/0", cur.Stock, cur.SoldCount)
	}
}

// 归还重试耗尽后记录保持欠账，重放同一补偿必须把库存追回来，
// 且追回之后再重放只能是无操作。
func TestCompensatorReplayAfterExhaustedRelease(t *testing.T) {
	base := newFakeGoodsRepo()
	goodsRepo := &flakyGoodsRepo{fakeGoodsRepo: base, failures: releaseRetries}
	orders := newFakeGroupOrderRepo()
	comp := NewCompensator(goodsRepo, orders, testTracer())
	ctx := context.Background()

	g := &domain.Goods{Stock: 10}
	if err := base.Create(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := base.ReserveStock(ctx, g.ID, 1); err != nil {
		t.Fatal(err)
	}
	order := &domain.GroupOrder{GoodsID: g.ID, OrderID: "ord-1", Role: domain.RoleLeader, Quantity: 1}
	if err := orders.Create(ctx, order); err != nil {
		t.Fatal(err)
	}

	if err := comp.Cancel(ctx, order); err == nil {
		t.Fatal("expected error after exhausted release retries")
	}
	stored, _ := orders.FindByID(ctx, order.ID)
	if stored.Status != domain.GroupCancelled {
		t.Errorf("status = %v; want Cancelled", stored.Status)
	}
	if !stored.ReleaseOwed() {
		t.Error("record must keep owing the release")
	}
	cur, _ := base.FindByID(ctx, g.ID)
	if cur.Stock != 9 || cur.SoldCount != 1 {
		t.Fatalf("counters = %d/%d; want 9/1 while release is owed", cur.Stock, cur.SoldCount)
	}

	// 故障恢复后重放：跳过状态流转，补做归还
	if err := comp.Cancel(ctx, stored); err != nil {
		t.Fatalf("replay Cancel: %v", err)
	}
	stored, _ = orders.FindByID(ctx, order.ID)
	if stored.ReleaseOwed() {
		t.Error("release must be settled after replay")
	}
	cur, _ = base.FindByID(ctx, g.ID)
	if cur.Stock != 10 || cur.SoldCount != 0 {
		t.Errorf("counters = %d/%d; want 10/0 after replay", cur.Stock, cur.SoldCount)
	}

	// 还清之后再重放，库存不能二次归还
	if err := comp.Cancel(ctx, stored); err != nil {
		t.Errorf("third Cancel err = %v; want nil", err)
	}
	cur, _ = base.FindByID(ctx, g.ID)
	if cur.Stock != 10 || cur.SoldCount != 0 {
		t.Errorf("counters = %d/%d; want 10/0 after noop replay", cur.Stock, cur.SoldCount)
	}
}

func TestCompensatorRetriesRelease(t *testing.T) {
	base := newFakeGoodsRepo()
	goodsRepo := &flakyGoodsRepo{fakeGoodsRepo: base, failures: 2}
	orders := newFakeGroupOrderRepo()
	comp := NewCompensator(goodsRepo, orders, testTracer())
	ctx := context.Background()

	g := &domain.Goods{Stock: 10}
	if err := base.Create(ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := base.ReserveStock(ctx, g.ID, 1); err != nil {
		t.Fatal(err)
	}
	order := &domain.GroupOrder{GoodsID: g.ID, OrderID: "ord-1", Quantity: 1}
	if err := orders.Create(ctx, order); err != nil {
		t.Fatal(err)
	}

	if err := comp.Cancel(ctx, order); err != nil {
		t.Fatalf("Cancel with flaky release: %v", err)
	}
	cur, _ := base.FindByID(ctx, g.ID)
	if cur.Stock != 10 {
		t.Errorf("stock = %d; want 10 after retried release", cur.Stock)
	}
}
