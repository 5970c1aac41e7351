package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"flashmall/internal/service/promotion/domain"
	"flashmall/internal/service/promotion/domain/port"
)

func testTracer() trace.Tracer {
	return noop.NewTracerProvider().Tracer("test")
}

// fakeActivityRepo 线程安全的内存活动仓储。
type fakeActivityRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Activity
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{items: make(map[int64]*domain.Activity)}
}

func (r *fakeActivityRepo) Create(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if !a.Deleted && a.Name == activity.Name {
			return domain.ErrNameExists
		}
	}
	r.nextID++
	activity.ID = r.nextID
	cp := *activity
	r.items[cp.ID] = &cp
	return nil
}

func (r *fakeActivityRepo) FindByID(_ context.Context, id int64) (*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.Deleted {
		return nil, domain.ErrActivityNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeActivityRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if !a.Deleted && a.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeActivityRepo) Update(_ context.Context, activity *domain.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[activity.ID]
	if !ok || a.Deleted {
		return domain.ErrActivityNotFound
	}
	cp := *activity
	cp.Status = a.Status
	r.items[cp.ID] = &cp
	return nil
}

func (r *fakeActivityRepo) UpdateStatus(_ context.Context, id int64, from, to domain.ActivityStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.Deleted || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (r *fakeActivityRepo) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.Deleted {
		return domain.ErrActivityNotFound
	}
	a.Deleted = true
	return nil
}

func (r *fakeActivityRepo) List(_ context.Context, kind domain.ActivityKind, offset, limit int) ([]*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*domain.Activity
	for i := int64(1); i <= r.nextID; i++ {
		a, ok := r.items[i]
		if !ok || a.Deleted {
			continue
		}
		if kind != 0 && a.Kind != kind {
			continue
		}
		cp := *a
		all = append(all, &cp)
	}
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r *fakeActivityRepo) FindStale(_ context.Context, now time.Time, limit int) ([]*domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Activity
	for _, a := range r.items {
		if a.Deleted || len(out) >= limit {
			continue
		}
		waitingDue := a.Status == domain.ActivityWaiting && !now.Before(a.StartTime)
		activeDue := a.Status == domain.ActivityActive && now.After(a.EndTime)
		if waitingDue || activeDue {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeGoodsRepo 线程安全的内存商品仓储，库存变更持锁 CAS。
type fakeGoodsRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Goods
}

func newFakeGoodsRepo() *fakeGoodsRepo {
	return &fakeGoodsRepo{items: make(map[int64]*domain.Goods)}
}

func (r *fakeGoodsRepo) Create(_ context.Context, goods *domain.Goods) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	goods.ID = r.nextID
	cp := *goods
	r.items[cp.ID] = &cp
	return nil
}

func (r *fakeGoodsRepo) FindByID(_ context.Context, id int64) (*domain.Goods, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.items[id]
	if !ok || g.Deleted {
		return nil, domain.ErrGoodsNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *fakeGoodsRepo) ListByActivity(_ context.Context, activityID int64) ([]*domain.Goods, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Goods
	for i := int64(1); i <= r.nextID; i++ {
		g, ok := r.items[i]
		if ok && !g.Deleted && g.ActivityID == activityID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeGoodsRepo) ReserveStock(_ context.Context, goodsID, qty int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.items[goodsID]
	if !ok || g.Deleted {
		return domain.ErrGoodsNotFound
	}
	if g.Stock < qty {
		return domain.ErrStockInsufficient
	}
	g.Stock -= qty
	g.SoldCount += qty
	return nil
}

func (r *fakeGoodsRepo) ReleaseStock(_ context.Context, goodsID, qty int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.items[goodsID]
	if !ok || g.Deleted {
		return domain.ErrGoodsNotFound
	}
	if qty > g.SoldCount {
		qty = g.SoldCount
	}
	g.Stock += qty
	g.SoldCount -= qty
	return nil
}

// fakeGroupOrderRepo 线程安全的内存拼团单仓储。
type fakeGroupOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.GroupOrder
}

func newFakeGroupOrderRepo() *fakeGroupOrderRepo {
	return &fakeGroupOrderRepo{items: make(map[int64]*domain.GroupOrder)}
}

func (r *fakeGroupOrderRepo) Create(_ context.Context, order *domain.GroupOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.items {
		if o.OrderID == order.OrderID {
			return domain.ErrGroupAlreadyJoined
		}
	}
	r.nextID++
	order.ID = r.nextID
	cp := *order
	r.items[cp.ID] = &cp
	return nil
}

func (r *fakeGroupOrderRepo) FindByID(_ context.Context, id int64) (*domain.GroupOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok {
		return nil, domain.ErrGroupOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeGroupOrderRepo) FindByOrderID(_ context.Context, orderID string) (*domain.GroupOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.items {
		if o.OrderID == orderID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrGroupOrderNotFound
}

func (r *fakeGroupOrderRepo) ListPendingByLeader(_ context.Context, leaderID int64) ([]*domain.GroupOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.GroupOrder
	for i := int64(1); i <= r.nextID; i++ {
		o, ok := r.items[i]
		if !ok || o.Status != domain.GroupPending {
			continue
		}
		if o.ID == leaderID || o.ParentID == leaderID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeGroupOrderRepo) CountActiveByMember(_ context.Context, leaderID, memberID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, o := range r.items {
		if o.MemberID != memberID {
			continue
		}
		if o.ID != leaderID && o.ParentID != leaderID {
			continue
		}
		if o.Status == domain.GroupPending || o.Status == domain.GroupSuccess {
			count++
		}
	}
	return count, nil
}

func (r *fakeGroupOrderRepo) FinalizeGroup(_ context.Context, leaderID int64, successTime time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.items {
		if (o.ID == leaderID || o.ParentID == leaderID) && o.Status == domain.GroupPending {
			o.Status = domain.GroupSuccess
			t := successTime
			o.SuccessTime = &t
			n++
		}
	}
	return n, nil
}

func (r *fakeGroupOrderRepo) TransitionStatus(_ context.Context, id int64, from, to domain.GroupOrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r *fakeGroupOrderRepo) MarkStockReleased(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.items[id]
	if !ok {
		return domain.ErrGroupOrderNotFound
	}
	o.StockReleased = true
	return nil
}

func (r *fakeGroupOrderRepo) FindExpiredPendingLeaders(_ context.Context, now time.Time, limit int) ([]*domain.GroupOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.GroupOrder
	for i := int64(1); i <= r.nextID; i++ {
		o, ok := r.items[i]
		if !ok || len(out) >= limit {
			continue
		}
		if o.Role == domain.RoleLeader && o.Status == domain.GroupPending && now.After(o.ExpireTime) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeProducer 记录发布的事件。
type fakeProducer struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (p *fakeProducer) Publish(_ context.Context, event *domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeProducer) byType(t domain.EventType) []*domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*domain.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeCatalog 固定返回占位商品快照。
type fakeCatalog struct {
	failFor map[int64]bool
}

func (c *fakeCatalog) GetProduct(_ context.Context, productID int64) (*port.ProductInfo, error) {
	if c.failFor[productID] {
		return nil, fmt.Errorf("product %d not found", productID)
	}
	return &port.ProductInfo{
		ProductID:     productID,
		Name:          fmt.Sprintf("product-%d", productID),
		Image:         fmt.Sprintf("https://img.example.com/%d.png", productID),
		OriginalPrice: 9900,
	}, nil
}

// localLocker 进程内团长锁，与生产的本地实现同构。
type localLocker struct {
	locks sync.Map
}

func (l *localLocker) WithLock(ctx context.Context, leaderID int64, fn func(ctx context.Context) error) error {
	actual, _ := l.locks.LoadOrStore(leaderID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return fn(ctx)
}

// memoryLedger 进程内限购台账。
type memoryLedger struct {
	mu      sync.Mutex
	counter map[string]int64
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{counter: make(map[string]int64)}
}

func (l *memoryLedger) key(goodsID, userID int64) string {
	return fmt.Sprintf("%d:%d", goodsID, userID)
}

func (l *memoryLedger) Reserve(_ context.Context, goodsID, userID, qty, limit int64) error {
	if limit <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(goodsID, userID)
	if l.counter[k]+qty > limit {
		return domain.ErrLimitExceeded
	}
	l.counter[k] += qty
	return nil
}

func (l *memoryLedger) Release(_ context.Context, goodsID, userID, qty int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(goodsID, userID)
	if qty > l.counter[k] {
		qty = l.counter[k]
	}
	l.counter[k] -= qty
	return nil
}
