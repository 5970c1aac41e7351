package domain

import "time"

// GroupRole 拼团单角色。
type GroupRole int8

const (
	RoleLeader GroupRole = 1 // 团长
	RoleMember GroupRole = 2 // 团员
)

// GroupOrderStatus 拼团单状态。
type GroupOrderStatus int8

const (
	GroupPending   GroupOrderStatus = 0 // 拼团中
	GroupSuccess   GroupOrderStatus = 1 // 已成团
	GroupCancelled GroupOrderStatus = 2 // 已取消
	GroupExpired   GroupOrderStatus = 3 // 超时未成团
)

// GroupOrder 拼团订单记录，团长和团员各占一条。
// 记录只做状态流转，从不物理删除。
//
// 不变式：
//   - 同一 (团长, 成员) 至多存在一条 Pending 记录；
//   - ExpireTime 在开团时定死，团员记录从团长复制，绝不延长；
//   - 挂在团长下的 Pending/Success 记录数不超过商品的 GroupCount。
type GroupOrder struct {
	ID      int64
	GoodsID int64

	// MainOrderID 是团长的外部订单号，同团所有记录共享，用于整团对账。
	MainOrderID string
	// OrderID / OrderNo 由订单服务生成并持有。
	OrderID string
	OrderNo string

	MemberID   int64
	MemberName string

	Role GroupRole
	// ParentID 指向团长记录，团长本身为 0。
	ParentID int64

	Quantity int64

	Status GroupOrderStatus
	// StockReleased 标记该记录的预占库存已归还。状态流转和库存归还
	// 不在一个事务里，归还可能滞后于终态落库，重放路径靠它判断欠账。
	StockReleased bool
	ExpireTime    time.Time
	SuccessTime   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLeader 是否为团长记录。
func (g *GroupOrder) IsLeader() bool {
	return g.Role == RoleLeader
}

// LeaderID 返回该记录所属团的团长记录 ID。
func (g *GroupOrder) LeaderID() int64 {
	if g.IsLeader() {
		return g.ID
	}
	return g.ParentID
}

// Terminal 是否已进入终态。成团、取消、过期之后记录不再变化。
func (g *GroupOrder) Terminal() bool {
	return g.Status != GroupPending
}

// ReleaseOwed 该记录是否还欠库存归还：已取消/已散团但归还未完成。
// 成团记录的库存保持占用，不在归还范围内。
func (g *GroupOrder) ReleaseOwed() bool {
	return (g.Status == GroupCancelled || g.Status == GroupExpired) && !g.StockReleased
}

// ExpiredAt 判断在给定时刻是否已超过成团截止时间。
func (g *GroupOrder) ExpiredAt(now time.Time) bool {
	return now.After(g.ExpireTime)
}
