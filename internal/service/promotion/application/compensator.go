package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flashmall/internal/pkg/logger"
	"flashmall/internal/service/promotion/domain"
)

const (
	releaseRetries = 5
	releaseBackoff = 50 * time.Millisecond
)

// Compensator 订单补偿：取消/过期路径共用的幂等收尾例程。
//
// 收尾分两步：先条件流转状态（Pending → 终态），库存归还成功后
// 盖上 stock_released 标记。流转决定记录的终态归属，标记决定
// 库存的欠账归属：归还重试耗尽时记录停在"终态但未归还"，
// 重放同一补偿会跳过流转、直接补做归还，直到标记盖上为止。
// 同一团的补偿都在团长锁内串行执行，归还不会并发重复。
type Compensator struct {
	goods  domain.GoodsRepository
	orders domain.GroupOrderRepository
	tracer trace.Tracer
}

// NewCompensator 创建补偿器。
func NewCompensator(goods domain.GoodsRepository, orders domain.GroupOrderRepository, tracer trace.Tracer) *Compensator {
	return &Compensator{goods: goods, orders: orders, tracer: tracer}
}

// Cancel 把拼团单收尾为已取消并归还其预占库存。
func (c *Compensator) Cancel(ctx context.Context, order *domain.GroupOrder) error {
	return c.terminate(ctx, order, domain.GroupCancelled)
}

// Expire 把拼团单收尾为超时散团并归还其预占库存。
func (c *Compensator) Expire(ctx context.Context, order *domain.GroupOrder) error {
	return c.terminate(ctx, order, domain.GroupExpired)
}

func (c *Compensator) terminate(ctx context.Context, order *domain.GroupOrder, to domain.GroupOrderStatus) error {
	ctx, span := c.tracer.Start(ctx, "compensation.Terminate")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("group_order.id", order.ID),
		attribute.Int("to_status", int(to)),
	)

	// 终态且还清的记录直接无操作；终态但欠归还的记录走下面的补归还
	if order.Terminal() && !order.ReleaseOwed() {
		metricCompensation.WithLabelValues("noop").Inc()
		return nil
	}

	if !order.Terminal() {
		ok, err := c.orders.TransitionStatus(ctx, order.ID, domain.GroupPending, to)
		if err != nil {
			metricCompensation.WithLabelValues("error").Inc()
			return err
		}
		if ok {
			order.Status = to
		} else {
			// 别的路径已经流转过；重读确认它是否连归还也做完了
			cur, err := c.orders.FindByID(ctx, order.ID)
			if err != nil {
				metricCompensation.WithLabelValues("error").Inc()
				return err
			}
			if !cur.ReleaseOwed() {
				metricCompensation.WithLabelValues("noop").Inc()
				return nil
			}
			order.Status = cur.Status
		}
	}

	// 库存归还代表真实的资金/货权敞口，重试耗尽也不能丢：
	// 标记不盖上，记录保持欠账，等下一次补偿重放继续还
	if err := c.releaseWithRetry(ctx, order.GoodsID, order.Quantity); err != nil {
		metricCompensation.WithLabelValues("release_failed").Inc()
		return err
	}
	if err := c.orders.MarkStockReleased(ctx, order.ID); err != nil {
		metricCompensation.WithLabelValues("error").Inc()
		return err
	}
	order.StockReleased = true

	metricCompensation.WithLabelValues("ok").Inc()
	return nil
}

func (c *Compensator) releaseWithRetry(ctx context.Context, goodsID, qty int64) error {
	var lastErr error
	backoff := releaseBackoff
	for i := 0; i < releaseRetries; i++ {
		if lastErr = c.goods.ReleaseStock(ctx, goodsID, qty); lastErr == nil {
			metricRelease.Inc()
			return nil
		}
		logger.Ctx(ctx).Warn().Err(lastErr).
			Int64("goods_id", goodsID).Int64("qty", qty).Int("attempt", i+1).
			Msg("release stock failed, will retry")
		if i == releaseRetries-1 {
			break
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	logger.Ctx(ctx).Error().Err(lastErr).
		Int64("goods_id", goodsID).Int64("qty", qty).
		Msg("release stock exhausted retries, record keeps owing release")
	return lastErr
}
