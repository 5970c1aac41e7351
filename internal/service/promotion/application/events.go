package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"flashmall/internal/pkg/logger"
	"flashmall/internal/service/promotion/domain"
	"flashmall/internal/service/promotion/domain/port"
)

// newEvent 构造带唯一 ID 和时间戳的事件骨架。
func newEvent(t domain.EventType) *domain.Event {
	return &domain.Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now(),
	}
}

// publish 发布事件。事件流是广播面，发布失败只记日志，不打断主流程。
func publish(ctx context.Context, producer port.EventProducer, event *domain.Event) {
	if producer == nil {
		return
	}
	if err := producer.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("event_type", string(event.Type)).Msg("publish promotion event")
	}
}

// refreshActivityStatus 按当前时间重算活动状态，变化则条件落库并广播。
// 条件更新保证读路径和清扫器并发重算时的幂等。
func refreshActivityStatus(ctx context.Context, repo domain.ActivityRepository, producer port.EventProducer, act *domain.Activity, now time.Time) error {
	computed := act.ComputeStatus(now)
	if computed == act.Status {
		return nil
	}

	ok, err := repo.UpdateStatus(ctx, act.ID, act.Status, computed)
	if err != nil {
		return err
	}
	if ok {
		ev := newEvent(domain.EventActivityStatusChanged)
		ev.ActivityID = act.ID
		ev.FromStatus = int8(act.Status)
		ev.ToStatus = int8(computed)
		publish(ctx, producer, ev)
	}
	// 条件更新没命中说明别的路径已经推进过，本地状态同样对齐
	act.Status = computed
	return nil
}
