package domain

import "time"

// ActivityKind 区分两种促销玩法：秒杀和拼团。
type ActivityKind int8

const (
	KindSeckill  ActivityKind = 1 // 限时秒杀
	KindGroupBuy ActivityKind = 2 // 拼团
)

// ActivityStatus 活动生命周期状态。
// 除显式取消外，状态是 (now, StartTime, EndTime) 的纯函数，
// 重算是幂等的。
type ActivityStatus int8

const (
	ActivityWaiting   ActivityStatus = 0 // 未开始
	ActivityActive    ActivityStatus = 1 // 进行中
	ActivityEnded     ActivityStatus = 2 // 已结束
	ActivityCancelled ActivityStatus = 3 // 已取消（终态）
)

// Activity 是促销活动聚合的根实体。
// Deleted 是软删除标记，所有读路径必须过滤。
type Activity struct {
	ID          int64
	Name        string
	Code        string
	Kind        ActivityKind
	Description string
	ShareTitle  string
	ShareImage  string
	Remark      string

	StartTime time.Time
	EndTime   time.Time

	// PreviewWindow 仅秒杀活动使用：开始前多久允许前台预览。
	PreviewWindow time.Duration
	// ValidHours 仅拼团活动使用：开团后多少小时内必须成团。
	ValidHours int

	Status  ActivityStatus
	Deleted bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ComputeStatus 根据当前时间重算活动状态。
// 已取消的活动保持取消，不参与时间窗口推导。
func (a *Activity) ComputeStatus(now time.Time) ActivityStatus {
	if a.Status == ActivityCancelled {
		return ActivityCancelled
	}
	switch {
	case now.Before(a.StartTime):
		return ActivityWaiting
	case now.After(a.EndTime):
		return ActivityEnded
	default:
		return ActivityActive
	}
}

// InPreview 判断秒杀活动是否处于开始前的预览窗口内。
func (a *Activity) InPreview(now time.Time) bool {
	if a.Kind != KindSeckill || a.PreviewWindow <= 0 {
		return false
	}
	previewStart := a.StartTime.Add(-a.PreviewWindow)
	return !now.Before(previewStart) && now.Before(a.StartTime)
}

// GroupExpireTime 计算以 now 开团时的成团截止时间。
func (a *Activity) GroupExpireTime(now time.Time) time.Time {
	return now.Add(time.Duration(a.ValidHours) * time.Hour)
}
