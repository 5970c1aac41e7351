package domain

import "time"

// Goods 是挂在活动下的促销 SKU。
// 不变式：Stock >= 0 且 Stock + SoldCount 恒等于初始库存；
// Stock/SoldCount 只允许通过库存预占引擎（仓储的条件更新）变动。
type Goods struct {
	ID         int64
	ActivityID int64
	ProductID  int64

	// 商品快照，创建时从商品中心拉取，避免促销期间受主数据变更影响。
	ProductName  string
	ProductImage string

	OriginalPrice int64 // 单位：分
	PromoPrice    int64 // 单位：分

	Stock     int64
	SoldCount int64

	// LimitPerUser 秒杀限购：单用户在该 SKU 上的累计预占上限，0 表示不限。
	LimitPerUser int64
	// GroupCount 拼团成团人数，仅拼团商品使用。
	GroupCount int

	SortOrder int
	Deleted   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InitialStock 推导初始库存。两个计数器在同一条原子更新里变动，
// 因此该和在任意可观测时刻都成立。
func (g *Goods) InitialStock() int64 {
	return g.Stock + g.SoldCount
}
