package application

import (
	"context"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flashmall/internal/service/promotion/domain"
)

// InventoryService 库存预占引擎。秒杀下单和拼团协调器的所有库存变动
// 都从这里走，原子性由仓储的单条条件更新保证（见 GoodsRepository 注释）。
type InventoryService struct {
	goods  domain.GoodsRepository
	tracer trace.Tracer
}

// NewInventoryService 创建库存服务。
func NewInventoryService(goods domain.GoodsRepository, tracer trace.Tracer) *InventoryService {
	return &InventoryService{goods: goods, tracer: tracer}
}

// Reserve 预占库存：stock -= qty; soldCount += qty，一步完成。
// 库存不足返回 ErrStockInsufficient 且无任何副作用。
func (s *InventoryService) Reserve(ctx context.Context, goodsID, qty int64) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("goods.id", goodsID),
		attribute.Int64("reserve.qty", qty),
	)

	if qty <= 0 {
		return errors.WithStack(domain.ErrInvalidQuantity)
	}

	err := s.goods.ReserveStock(ctx, goodsID, qty)
	switch {
	case err == nil:
		metricReserve.WithLabelValues("ok").Inc()
	case domain.KindOf(err) == domain.KindResourceExhausted:
		metricReserve.WithLabelValues("insufficient").Inc()
	default:
		metricReserve.WithLabelValues("error").Inc()
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Release 归还库存，按 soldCount 截断，stock 永远不会超过初始库存。
func (s *InventoryService) Release(ctx context.Context, goodsID, qty int64) error {
	ctx, span := s.tracer.Start(ctx, "inventory.Release")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("goods.id", goodsID),
		attribute.Int64("release.qty", qty),
	)

	if qty <= 0 {
		return errors.WithStack(domain.ErrInvalidQuantity)
	}

	if err := s.goods.ReleaseStock(ctx, goodsID, qty); err != nil {
		span.RecordError(err)
		return err
	}
	metricRelease.Inc()
	return nil
}
