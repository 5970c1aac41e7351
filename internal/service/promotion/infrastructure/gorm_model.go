package infrastructure

import (
	"database/sql"
	"time"
)

// ActivityModel 对应数据库中的 promo_activity 表。
type ActivityModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:128;uniqueIndex:uk_activity_name"`
	Code        string `gorm:"size:64;index"`
	Kind        int8   `gorm:"type:tinyint"`
	Description string `gorm:"type:text"`
	ShareTitle  string `gorm:"size:255"`
	ShareImage  string `gorm:"size:512"`
	Remark      string `gorm:"size:512"`

	StartTime time.Time `gorm:"index"`
	EndTime   time.Time `gorm:"index"`

	// PreviewWindowMinutes 秒杀预览窗口，分钟
	PreviewWindowMinutes int
	// ValidHours 拼团成团时限，小时
	ValidHours int

	Status  int8 `gorm:"type:tinyint;default:0;index"`
	Deleted int8 `gorm:"type:tinyint;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (ActivityModel) TableName() string {
	return "promo_activity"
}

// GoodsModel 对应数据库中的 promo_activity_goods 表。
// stock / sold_count 只通过条件 UPDATE 变动，禁止整行 Save 回写。
type GoodsModel struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	ActivityID int64 `gorm:"index"`
	ProductID  int64 `gorm:"index"`

	ProductName  string `gorm:"size:255"`
	ProductImage string `gorm:"size:512"`

	OriginalPrice int64
	PromoPrice    int64

	Stock     int64
	SoldCount int64

	LimitPerUser int64
	GroupCount   int

	SortOrder int
	Deleted   int8 `gorm:"type:tinyint;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (GoodsModel) TableName() string {
	return "promo_activity_goods"
}

// GroupOrderModel 对应数据库中的 promo_group_order 表。
type GroupOrderModel struct {
	ID      int64 `gorm:"primaryKey;autoIncrement"`
	GoodsID int64 `gorm:"index"`

	MainOrderID string `gorm:"size:64;index"`
	OrderID     string `gorm:"size:64;uniqueIndex:uk_group_order_id"`
	OrderNo     string `gorm:"size:64"`

	MemberID   int64  `gorm:"index"`
	MemberName string `gorm:"size:128"`

	Role     int8  `gorm:"type:tinyint"`
	ParentID int64 `gorm:"index"`

	Quantity int64

	Status        int8 `gorm:"type:tinyint;default:0;index"`
	StockReleased int8 `gorm:"type:tinyint;default:0"`
	ExpireTime    time.Time
	SuccessTime   sql.NullTime

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定 GORM 应该使用的表名
func (GroupOrderModel) TableName() string {
	return "promo_group_order"
}
