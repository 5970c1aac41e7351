package application

import (
	"time"

	"flashmall/internal/service/promotion/domain"
)

// CreateActivityRequest 创建活动入参。
type CreateActivityRequest struct {
	Name        string              `json:"name"`
	Code        string              `json:"code"`
	Kind        domain.ActivityKind `json:"kind"`
	Description string              `json:"description"`
	ShareTitle  string              `json:"shareTitle"`
	ShareImage  string              `json:"shareImage"`
	Remark      string              `json:"remark"`

	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`

	// PreviewWindowMinutes 秒杀预览窗口，分钟。
	PreviewWindowMinutes int `json:"previewWindowMinutes"`
	// ValidHours 拼团有效时长，小时。
	ValidHours int `json:"validHours"`

	Goods []CreateGoodsSpec `json:"goods"`
}

// CreateGoodsSpec 活动下单个促销 SKU 的配置。
// 名称/图片/原价不由调用方提供，创建时从商品中心拉快照。
type CreateGoodsSpec struct {
	ProductID    int64 `json:"productId"`
	PromoPrice   int64 `json:"promoPrice"`
	Stock        int64 `json:"stock"`
	LimitPerUser int64 `json:"limitPerUser"`
	GroupCount   int   `json:"groupCount"`
	SortOrder    int   `json:"sortOrder"`
}

// UpdateActivityPatch 活动更新补丁，nil 字段表示不修改。
type UpdateActivityPatch struct {
	Name      *string    `json:"name"`
	Code      *string    `json:"code"`
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`

	PreviewWindowMinutes *int `json:"previewWindowMinutes"`
	ValidHours           *int `json:"validHours"`

	Description *string `json:"description"`
	ShareTitle  *string `json:"shareTitle"`
	ShareImage  *string `json:"shareImage"`
	Remark      *string `json:"remark"`
}

// touchesRestricted 判断补丁是否触碰了进行中活动的禁改字段。
// 进行中只放行展示类字段：描述、分享文案/图片、备注。
func (p *UpdateActivityPatch) touchesRestricted() bool {
	return p.Name != nil || p.Code != nil ||
		p.StartTime != nil || p.EndTime != nil ||
		p.PreviewWindowMinutes != nil || p.ValidHours != nil
}

// ActivityDetail 活动详情：活动 + 商品列表，状态已重算。
type ActivityDetail struct {
	Activity *domain.Activity `json:"activity"`
	Goods    []*domain.Goods  `json:"goods"`
	// InPreview 秒杀专用：当前处于开始前的预览窗口。
	InPreview bool `json:"inPreview"`
}

// MemberRef 订单服务侧的下单人引用，orderId/orderNo 由订单服务生成并持有。
type MemberRef struct {
	OrderID    string `json:"orderId"`
	OrderNo    string `json:"orderNo"`
	MemberID   int64  `json:"memberId"`
	MemberName string `json:"memberName"`
}
