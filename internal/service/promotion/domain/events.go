package domain

import "time"

// EventType 促销事件类型，发布到 promotion-events 主题。
// 事件流是广播面（推送网关、数据分析订阅），不是订单服务的回调协议。
type EventType string

const (
	EventActivityStatusChanged EventType = "activity.status_changed"
	EventSeckillReserved       EventType = "seckill.reserved"
	EventGroupStarted          EventType = "group.started"
	EventGroupMemberJoined     EventType = "group.member_joined"
	EventGroupSucceeded        EventType = "group.succeeded"
	EventGroupCancelled        EventType = "group.cancelled"
	EventGroupExpired          EventType = "group.expired"
)

// Event 促销领域事件。字段按事件类型选填。
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`

	ActivityID int64 `json:"activityId,omitempty"`
	GoodsID    int64 `json:"goodsId,omitempty"`
	// LeaderOrderID 团长记录 ID，推送网关用它聚合同团进度。
	LeaderOrderID int64  `json:"leaderOrderId,omitempty"`
	OrderID       string `json:"orderId,omitempty"`
	MemberID      int64  `json:"memberId,omitempty"`

	// PendingCount 拼团进度：当前 Pending 记录数（含团长）。
	PendingCount int `json:"pendingCount,omitempty"`
	GroupCount   int `json:"groupCount,omitempty"`

	FromStatus int8 `json:"fromStatus,omitempty"`
	ToStatus   int8 `json:"toStatus,omitempty"`
}
