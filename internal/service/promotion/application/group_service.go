package application

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flashmall/internal/pkg/logger"
	"flashmall/internal/service/promotion/domain"
	"flashmall/internal/service/promotion/domain/port"
)

// GroupBuyService 拼团协调器。
//
// 团的生命周期全部串行化在团长粒度的分布式锁内（port.GroupLocker），
// 锁外只允许做一次性的预读；锁内必须重新加载团长单再判定，
// 避免拿到锁之前状态已被并发参团或清扫任务改写。
//
// 锁序约定：库存行的原子更新不依赖外部锁，参团流程在持有团长锁时
// 直接走 ReserveStock，不存在先持团长锁再取商品锁的嵌套，
// 与秒杀路径之间不会死锁。
type GroupBuyService struct {
	activities  domain.ActivityRepository
	goods       domain.GoodsRepository
	orders      domain.GroupOrderRepository
	inventory   *InventoryService
	locker      port.GroupLocker
	compensator *Compensator
	producer    port.EventProducer
	tracer      trace.Tracer
}

func NewGroupBuyService(
	activities domain.ActivityRepository,
	goods domain.GoodsRepository,
	orders domain.GroupOrderRepository,
	inventory *InventoryService,
	locker port.GroupLocker,
	compensator *Compensator,
	producer port.EventProducer,
	tracer trace.Tracer,
) *GroupBuyService {
	return &GroupBuyService{
		activities:  activities,
		goods:       goods,
		orders:      orders,
		inventory:   inventory,
		locker:      locker,
		compensator: compensator,
		producer:    producer,
		tracer:      tracer,
	}
}

// StartGroupBuy 开团：校验活动可参与后预占团长份库存并落团长单。
// MainOrderID 取团长的外部订单号，同团所有记录共享。
func (s *GroupBuyService) StartGroupBuy(ctx context.Context, goodsID, quantity int64, ref MemberRef) (*domain.GroupOrder, error) {
	ctx, span := s.tracer.Start(ctx, "groupbuy.Start")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("goods.id", goodsID),
		attribute.Int64("member.id", ref.MemberID),
	)

	if quantity <= 0 {
		return nil, errors.WithStack(domain.ErrInvalidQuantity)
	}

	goodsItem, act, err := s.loadJoinable(ctx, goodsID)
	if err != nil {
		return nil, err
	}

	if err := s.inventory.Reserve(ctx, goodsID, quantity); err != nil {
		return nil, err
	}

	leader := &domain.GroupOrder{
		GoodsID:     goodsID,
		MainOrderID: ref.OrderID,
		OrderID:     ref.OrderID,
		OrderNo:     ref.OrderNo,
		MemberID:    ref.MemberID,
		MemberName:  ref.MemberName,
		Role:        domain.RoleLeader,
		Status:      domain.GroupPending,
		Quantity:    quantity,
		ExpireTime:  act.GroupExpireTime(time.Now()),
	}
	if err := s.orders.Create(ctx, leader); err != nil {
		// 落单失败时归还刚预占的库存，归还失败只记日志，留给清扫对账兜底
		if rerr := s.inventory.Release(ctx, goodsID, quantity); rerr != nil {
			logger.Ctx(ctx).Error().Err(rerr).
				Int64("goods_id", goodsID).Int64("qty", quantity).
				Msg("rollback reserve after leader create failed")
		}
		return nil, err
	}

	ev := newEvent(domain.EventGroupStarted)
	ev.ActivityID = act.ID
	ev.GoodsID = goodsID
	ev.LeaderOrderID = leader.ID
	ev.OrderID = leader.OrderID
	ev.MemberID = ref.MemberID
	ev.PendingCount = 1
	ev.GroupCount = goodsItem.GroupCount
	publish(ctx, s.producer, ev)
	return leader, nil
}

// JoinGroupBuy 参团。整个判定、预占、落单、成团序列都在团长锁内执行。
// leaderOrderID 是团长的外部订单号。
func (s *GroupBuyService) JoinGroupBuy(ctx context.Context, leaderOrderID string, quantity int64, ref MemberRef) (*domain.GroupOrder, error) {
	ctx, span := s.tracer.Start(ctx, "groupbuy.Join")
	defer span.End()
	span.SetAttributes(
		attribute.String("leader.order_id", leaderOrderID),
		attribute.Int64("member.id", ref.MemberID),
	)

	if quantity <= 0 {
		return nil, errors.WithStack(domain.ErrInvalidQuantity)
	}

	// 锁外预读只为定位团长记录 ID 作为锁 key
	hint, err := s.orders.FindByOrderID(ctx, leaderOrderID)
	if err != nil {
		return nil, err
	}
	leaderID := hint.LeaderID()

	var member *domain.GroupOrder
	err = s.locker.WithLock(ctx, leaderID, func(ctx context.Context) error {
		leader, err := s.orders.FindByID(ctx, leaderID)
		if err != nil {
			return err
		}
		goodsItem, act, err := s.loadJoinable(ctx, leader.GoodsID)
		if err != nil {
			return err
		}

		switch {
		case leader.Status == domain.GroupSuccess:
			return errors.WithStack(domain.ErrGroupAlreadyFull)
		case leader.Terminal() || leader.ExpiredAt(time.Now()):
			return errors.WithStack(domain.ErrGroupExpired)
		}

		joined, err := s.orders.CountActiveByMember(ctx, leader.ID, ref.MemberID)
		if err != nil {
			return err
		}
		if joined > 0 || leader.MemberID == ref.MemberID {
			return errors.WithStack(domain.ErrGroupAlreadyJoined)
		}

		pending, err := s.orders.ListPendingByLeader(ctx, leader.ID)
		if err != nil {
			return err
		}
		// pending 含团长自身
		if len(pending) >= goodsItem.GroupCount {
			return errors.WithStack(domain.ErrGroupAlreadyFull)
		}

		if err := s.inventory.Reserve(ctx, leader.GoodsID, quantity); err != nil {
			return err
		}

		member = &domain.GroupOrder{
			GoodsID:     leader.GoodsID,
			MainOrderID: leader.MainOrderID,
			OrderID:     ref.OrderID,
			OrderNo:     ref.OrderNo,
			MemberID:    ref.MemberID,
			MemberName:  ref.MemberName,
			ParentID:    leader.ID,
			Role:        domain.RoleMember,
			Status:      domain.GroupPending,
			Quantity:    quantity,
			ExpireTime:  leader.ExpireTime,
		}
		if err := s.orders.Create(ctx, member); err != nil {
			if rerr := s.inventory.Release(ctx, leader.GoodsID, quantity); rerr != nil {
				logger.Ctx(ctx).Error().Err(rerr).
					Int64("goods_id", leader.GoodsID).Int64("qty", quantity).
					Msg("rollback reserve after member create failed")
			}
			return err
		}

		count := len(pending) + 1
		if count >= goodsItem.GroupCount {
			return s.finalize(ctx, leader, act.ID, goodsItem.GroupCount, count)
		}

		ev := newEvent(domain.EventGroupMemberJoined)
		ev.ActivityID = act.ID
		ev.GoodsID = leader.GoodsID
		ev.LeaderOrderID = leader.ID
		ev.OrderID = member.OrderID
		ev.MemberID = ref.MemberID
		ev.PendingCount = count
		ev.GroupCount = goodsItem.GroupCount
		publish(ctx, s.producer, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// CheckGroupStatus 在团长锁内重算团状态：到期未成团则触发散团补偿。
// 清扫器与手工巡检共用这一入口。
func (s *GroupBuyService) CheckGroupStatus(ctx context.Context, leaderID int64) error {
	ctx, span := s.tracer.Start(ctx, "groupbuy.CheckStatus")
	defer span.End()
	span.SetAttributes(attribute.Int64("leader.id", leaderID))

	return s.locker.WithLock(ctx, leaderID, func(ctx context.Context) error {
		leader, err := s.orders.FindByID(ctx, leaderID)
		if err != nil {
			return err
		}
		if leader.Terminal() {
			// 终态但欠归还的记录补做归还
			if leader.ReleaseOwed() {
				return s.compensator.Expire(ctx, leader)
			}
			return nil
		}
		if !leader.ExpiredAt(time.Now()) {
			return nil
		}
		return s.expireGroup(ctx, leader)
	})
}

// CancelGroupOrder 按外部订单号取消拼团单。
// 团长取消时级联取消全团在途成员；成员取消只影响自身。
// 终态记录（含已成团）重复取消一律无操作成功。
func (s *GroupBuyService) CancelGroupOrder(ctx context.Context, orderID string) error {
	ctx, span := s.tracer.Start(ctx, "groupbuy.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("group_order.order_id", orderID))

	hint, err := s.orders.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	return s.locker.WithLock(ctx, hint.LeaderID(), func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, hint.ID)
		if err != nil {
			return err
		}
		// 终态且还清的记录重复取消是无操作；欠归还的终态记录
		// 重放取消会跳过状态流转、补做库存归还
		if order.Terminal() && !order.ReleaseOwed() {
			return nil
		}

		if order.IsLeader() {
			members, err := s.orders.ListPendingByLeader(ctx, order.ID)
			if err != nil {
				return err
			}
			for _, m := range members {
				if m.ID == order.ID {
					continue
				}
				if err := s.compensator.Cancel(ctx, m); err != nil {
					return err
				}
			}
		}
		if err := s.compensator.Cancel(ctx, order); err != nil {
			return err
		}

		ev := newEvent(domain.EventGroupCancelled)
		ev.GoodsID = order.GoodsID
		ev.LeaderOrderID = order.LeaderID()
		ev.OrderID = order.OrderID
		ev.MemberID = order.MemberID
		publish(ctx, s.producer, ev)
		return nil
	})
}

// finalize 必须在团长锁内调用。
func (s *GroupBuyService) finalize(ctx context.Context, leader *domain.GroupOrder, activityID int64, groupCount, count int) error {
	n, err := s.orders.FinalizeGroup(ctx, leader.ID, time.Now())
	if err != nil {
		return err
	}
	metricGroupFinalized.Inc()
	logger.Ctx(ctx).Info().
		Int64("leader_id", leader.ID).Int64("rows", n).
		Msg("group finalized")

	ev := newEvent(domain.EventGroupSucceeded)
	ev.ActivityID = activityID
	ev.GoodsID = leader.GoodsID
	ev.LeaderOrderID = leader.ID
	ev.OrderID = leader.OrderID
	ev.PendingCount = count
	ev.GroupCount = groupCount
	publish(ctx, s.producer, ev)
	return nil
}

// expireGroup 必须在团长锁内调用：先散团员再散团长。
func (s *GroupBuyService) expireGroup(ctx context.Context, leader *domain.GroupOrder) error {
	members, err := s.orders.ListPendingByLeader(ctx, leader.ID)
	if err != nil {
		return err
	}
	for _, m := range members {
		if m.ID == leader.ID {
			continue
		}
		if err := s.compensator.Expire(ctx, m); err != nil {
			return err
		}
	}
	if err := s.compensator.Expire(ctx, leader); err != nil {
		return err
	}
	metricGroupExpired.Inc()

	ev := newEvent(domain.EventGroupExpired)
	ev.GoodsID = leader.GoodsID
	ev.LeaderOrderID = leader.ID
	ev.OrderID = leader.OrderID
	publish(ctx, s.producer, ev)
	return nil
}

// loadJoinable 加载商品与所属拼团活动，要求活动处于进行中。
func (s *GroupBuyService) loadJoinable(ctx context.Context, goodsID int64) (*domain.Goods, *domain.Activity, error) {
	goodsItem, err := s.goods.FindByID(ctx, goodsID)
	if err != nil {
		return nil, nil, err
	}
	act, err := s.activities.FindByID(ctx, goodsItem.ActivityID)
	if err != nil {
		return nil, nil, err
	}
	if err := refreshActivityStatus(ctx, s.activities, s.producer, act, time.Now()); err != nil {
		return nil, nil, err
	}
	if act.Status != domain.ActivityActive || act.Kind != domain.KindGroupBuy {
		return nil, nil, errors.WithStack(domain.ErrNotActive)
	}
	return goodsItem, act, nil
}
