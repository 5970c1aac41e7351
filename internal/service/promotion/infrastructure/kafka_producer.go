package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"flashmall/internal/pkg/mq"
	"flashmall/internal/service/promotion/domain"
)

// PromotionEventProducer 是 port.EventProducer 的 Kafka 实现。
// 消息 key 按团长记录 ID（活动事件按活动 ID），
// 保证同一个团的进度事件落在同一分区、消费端看到有序进度。
type PromotionEventProducer struct {
	writer *kafka.Writer
}

func NewPromotionEventProducer(writer *kafka.Writer) *PromotionEventProducer {
	return &PromotionEventProducer{writer: writer}
}

func (p *PromotionEventProducer) Publish(ctx context.Context, event *domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.WithStack(err)
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(partitionKey(event)), value)
}

func partitionKey(event *domain.Event) string {
	if event.LeaderOrderID != 0 {
		return "group:" + strconv.FormatInt(event.LeaderOrderID, 10)
	}
	return "activity:" + strconv.FormatInt(event.ActivityID, 10)
}
