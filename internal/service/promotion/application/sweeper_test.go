package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"flashmall/internal/service/promotion/domain"
)

func newSweeperFixture(t *testing.T) (*Sweeper, *groupFixture, *domain.Goods) {
	t.Helper()
	fx, g := newGroupFixture(t, 100, 3)
	sweeper := NewSweeper(fx.activities, fx.orders, fx.svc, fx.producer, testTracer(), time.Minute, 50)
	return sweeper, fx, g
}

func TestSweeperRefreshesStaleActivities(t *testing.T) {
	sweeper, fx, _ := newSweeperFixture(t)
	ctx := context.Background()

	// 窗口已过但状态还停在 Active
	stale := &domain.Activity{
		Name:      "已过期未收尾",
		Kind:      domain.KindSeckill,
		StartTime: time.Now().Add(-2 * time.Hour),
		EndTime:   time.Now().Add(-time.Hour),
		Status:    domain.ActivityActive,
	}
	if err := fx.activities.Create(ctx, stale); err != nil {
		t.Fatal(err)
	}

	sweeper.RunOnce(ctx)

	cur, _ := fx.activities.FindByID(ctx, stale.ID)
	if cur.Status != domain.ActivityEnded {
		t.Errorf("status = %v; want Ended", cur.Status)
	}
	if len(fx.producer.byType(domain.EventActivityStatusChanged)) == 0 {
		t.Error("expected status change event")
	}
}

func TestSweeperExpiresOverdueGroups(t *testing.T) {
	sweeper, fx, g := newSweeperFixture(t)
	ctx := context.Background()

	// 两个过期团、一个健康团
	var overdue []*domain.GroupOrder
	for i := int64(1); i <= 2; i++ {
		leader, err := fx.svc.StartGroupBuy(ctx, g.ID, 1, memberRef(i*10))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fx.svc.JoinGroupBuy(ctx, leader.OrderID, 1, memberRef(i*10+1)); err != nil {
			t.Fatal(err)
		}
		overdue = append(overdue, leader)
	}
	healthy, err := fx.svc.StartGroupBuy(ctx, g.ID, 1, memberRef(99))
	if err != nil {
		t.Fatal(err)
	}

	fx.orders.mu.Lock()
	for _, l := range overdue {
		fx.orders.items[l.ID].ExpireTime = time.Now().Add(-time.Minute)
	}
	fx.orders.mu.Unlock()

	sweeper.RunOnce(ctx)

	for i, l := range overdue {
		cur, _ := fx.orders.FindByID(ctx, l.ID)
		if cur.Status != domain.GroupExpired {
			t.Errorf("overdue leader %d status = %v; want Expired", i, cur.Status)
		}
		member, _ := fx.orders.FindByOrderID(ctx, fmt.Sprintf("ord-%d", int64(i+1)*10+1))
		if member.Status != domain.GroupExpired {
			t.Errorf("overdue member %d status = %v; want Expired", i, member.Status)
		}
	}

	cur, _ := fx.orders.FindByID(ctx, healthy.ID)
	if cur.Status != domain.GroupPending {
		t.Errorf("healthy leader status = %v; want Pending", cur.Status)
	}

	// 4 份过期库存归还，健康团的 1 份保留
	goods, _ := fx.goods.FindByID(ctx, g.ID)
	if goods.SoldCount != 1 {
		t.Errorf("sold = %d; want 1", goods.SoldCount)
	}
	if len(fx.producer.byType(domain.EventGroupExpired)) != 2 {
		t.Error("expected two group expired events")
	}
}

// 扫两遍不能把库存还两遍。
func TestSweeperRunOnceIdempotent(t *testing.T) {
	sweeper, fx, g := newSweeperFixture(t)
	ctx := context.Background()

	leader, err := fx.svc.StartGroupBuy(ctx, g.ID, 1, memberRef(1))
	if err != nil {
		t.Fatal(err)
	}
	fx.orders.mu.Lock()
	fx.orders.items[leader.ID].ExpireTime = time.Now().Add(-time.Minute)
	fx.orders.mu.Unlock()

	sweeper.RunOnce(ctx)
	sweeper.RunOnce(ctx)

	goods, _ := fx.goods.FindByID(ctx, g.ID)
	if goods.Stock != 100 || goods.SoldCount != 0 {
		t.Errorf("counters = %d/%d; want 100/0 after single release", goods.Stock, goods.SoldCount)
	}
}

func TestSweeperStartStop(t *testing.T) {
	sweeper, _, _ := newSweeperFixture(t)

	sweeper.Start()
	sweeper.Start() // 重复启动无效果

	done := make(chan struct{})
	go func() {
		sweeper.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}
}
