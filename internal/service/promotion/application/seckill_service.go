package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flashmall/internal/pkg/logger"
	"flashmall/internal/service/promotion/domain"
	"flashmall/internal/service/promotion/domain/port"
)

// SeckillService 秒杀下单/撤单。
// 下单顺序：活动窗口校验 → 限购台账预占 → 库存预占；
// 库存不足时回滚台账，保持两边对账一致。
type SeckillService struct {
	activities domain.ActivityRepository
	goods      domain.GoodsRepository
	inventory  *InventoryService
	ledger     port.LimitLedger
	producer   port.EventProducer
	tracer     trace.Tracer
}

// NewSeckillService 创建秒杀服务。
func NewSeckillService(
	activities domain.ActivityRepository,
	goods domain.GoodsRepository,
	inventory *InventoryService,
	ledger port.LimitLedger,
	producer port.EventProducer,
	tracer trace.Tracer,
) *SeckillService {
	return &SeckillService{
		activities: activities,
		goods:      goods,
		inventory:  inventory,
		ledger:     ledger,
		producer:   producer,
		tracer:     tracer,
	}
}

// SeckillOrder 秒杀预占。成功返回 true；
// 库存不足返回 false + ErrStockInsufficient，超限购返回 false + ErrLimitExceeded。
func (s *SeckillService) SeckillOrder(ctx context.Context, goodsID, qty, userID int64) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "seckill.Order")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("goods.id", goodsID),
		attribute.Int64("user.id", userID),
		attribute.Int64("qty", qty),
	)

	goods, err := s.goods.FindByID(ctx, goodsID)
	if err != nil {
		return false, err
	}

	act, err := s.activities.FindByID(ctx, goods.ActivityID)
	if err != nil {
		return false, err
	}
	if err := refreshActivityStatus(ctx, s.activities, s.producer, act, time.Now()); err != nil {
		return false, err
	}
	// 拼团商品必须走拼团协调器，从秒杀路径下单会绕开成团判定
	if act.Status != domain.ActivityActive || act.Kind != domain.KindSeckill {
		return false, domain.ErrNotActive
	}

	// 先占限购额度，再占库存；台账超限时库存分文未动
	if err := s.ledger.Reserve(ctx, goodsID, userID, qty, goods.LimitPerUser); err != nil {
		span.RecordError(err)
		return false, err
	}

	if err := s.inventory.Reserve(ctx, goodsID, qty); err != nil {
		// 库存没占到，把台账额度还回去
		if rbErr := s.ledger.Release(ctx, goodsID, userID, qty); rbErr != nil {
			logger.Ctx(ctx).Error().Err(rbErr).
				Int64("goods_id", goodsID).Int64("user_id", userID).
				Msg("rollback limit ledger after reserve failure")
		}
		return false, err
	}

	ev := newEvent(domain.EventSeckillReserved)
	ev.ActivityID = act.ID
	ev.GoodsID = goodsID
	ev.MemberID = userID
	publish(ctx, s.producer, ev)

	return true, nil
}

// CancelSeckillOrder 秒杀撤单补偿：归还库存。
// 限购台账按累计口径计，不随撤单回退。
func (s *SeckillService) CancelSeckillOrder(ctx context.Context, goodsID, qty int64) error {
	ctx, span := s.tracer.Start(ctx, "seckill.Cancel")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("goods.id", goodsID),
		attribute.Int64("qty", qty),
	)

	return s.inventory.Release(ctx, goodsID, qty)
}
