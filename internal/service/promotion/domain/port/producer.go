package port

import (
	"context"

	"flashmall/internal/service/promotion/domain"
)

// EventProducer 促销事件的出站端口，Kafka 实现在 infrastructure 层。
// 事件发布失败不阻断业务主流程，由调用方决定记日志还是重试。
type EventProducer interface {
	Publish(ctx context.Context, event *domain.Event) error
}
