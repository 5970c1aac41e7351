package infrastructure

import (
	"database/sql"
	"time"

	"flashmall/internal/service/promotion/domain"
)

// ToDomainActivity 将数据库模型转换为领域模型
func ToDomainActivity(m *ActivityModel) *domain.Activity {
	return &domain.Activity{
		ID:            m.ID,
		Name:          m.Name,
		Code:          m.Code,
		Kind:          domain.ActivityKind(m.Kind),
		Description:   m.Description,
		ShareTitle:    m.ShareTitle,
		ShareImage:    m.ShareImage,
		Remark:        m.Remark,
		StartTime:     m.StartTime,
		EndTime:       m.EndTime,
		PreviewWindow: time.Duration(m.PreviewWindowMinutes) * time.Minute,
		ValidHours:    m.ValidHours,
		Status:        domain.ActivityStatus(m.Status),
		Deleted:       m.Deleted != 0,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ToActivityModel 将领域模型转换为数据库模型
func ToActivityModel(a *domain.Activity) *ActivityModel {
	deleted := int8(0)
	if a.Deleted {
		deleted = 1
	}
	return &ActivityModel{
		ID:                   a.ID,
		Name:                 a.Name,
		Code:                 a.Code,
		Kind:                 int8(a.Kind),
		Description:          a.Description,
		ShareTitle:           a.ShareTitle,
		ShareImage:           a.ShareImage,
		Remark:               a.Remark,
		StartTime:            a.StartTime,
		EndTime:              a.EndTime,
		PreviewWindowMinutes: int(a.PreviewWindow / time.Minute),
		ValidHours:           a.ValidHours,
		Status:               int8(a.Status),
		Deleted:              deleted,
	}
}

// ToDomainGoods 将数据库模型转换为领域模型
func ToDomainGoods(m *GoodsModel) *domain.Goods {
	return &domain.Goods{
		ID:            m.ID,
		ActivityID:    m.ActivityID,
		ProductID:     m.ProductID,
		ProductName:   m.ProductName,
		ProductImage:  m.ProductImage,
		OriginalPrice: m.OriginalPrice,
		PromoPrice:    m.PromoPrice,
		Stock:         m.Stock,
		SoldCount:     m.SoldCount,
		LimitPerUser:  m.LimitPerUser,
		GroupCount:    m.GroupCount,
		SortOrder:     m.SortOrder,
		Deleted:       m.Deleted != 0,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ToGoodsModel 将领域模型转换为数据库模型
func ToGoodsModel(g *domain.Goods) *GoodsModel {
	deleted := int8(0)
	if g.Deleted {
		deleted = 1
	}
	return &GoodsModel{
		ID:            g.ID,
		ActivityID:    g.ActivityID,
		ProductID:     g.ProductID,
		ProductName:   g.ProductName,
		ProductImage:  g.ProductImage,
		OriginalPrice: g.OriginalPrice,
		PromoPrice:    g.PromoPrice,
		Stock:         g.Stock,
		SoldCount:     g.SoldCount,
		LimitPerUser:  g.LimitPerUser,
		GroupCount:    g.GroupCount,
		SortOrder:     g.SortOrder,
		Deleted:       deleted,
	}
}

// ToDomainGroupOrder 将数据库模型转换为领域模型
func ToDomainGroupOrder(m *GroupOrderModel) *domain.GroupOrder {
	var successTime *time.Time
	if m.SuccessTime.Valid {
		t := m.SuccessTime.Time
		successTime = &t
	}
	return &domain.GroupOrder{
		ID:            m.ID,
		GoodsID:       m.GoodsID,
		MainOrderID:   m.MainOrderID,
		OrderID:       m.OrderID,
		OrderNo:       m.OrderNo,
		MemberID:      m.MemberID,
		MemberName:    m.MemberName,
		Role:          domain.GroupRole(m.Role),
		ParentID:      m.ParentID,
		Quantity:      m.Quantity,
		Status:        domain.GroupOrderStatus(m.Status),
		StockReleased: m.StockReleased != 0,
		ExpireTime:    m.ExpireTime,
		SuccessTime:   successTime,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// ToGroupOrderModel 将领域模型转换为数据库模型
func ToGroupOrderModel(g *domain.GroupOrder) *GroupOrderModel {
	var successTime sql.NullTime
	if g.SuccessTime != nil {
		successTime = sql.NullTime{Time: *g.SuccessTime, Valid: true}
	}
	released := int8(0)
	if g.StockReleased {
		released = 1
	}
	return &GroupOrderModel{
		ID:            g.ID,
		GoodsID:       g.GoodsID,
		MainOrderID:   g.MainOrderID,
		OrderID:       g.OrderID,
		OrderNo:       g.OrderNo,
		MemberID:      g.MemberID,
		MemberName:    g.MemberName,
		Role:          int8(g.Role),
		ParentID:      g.ParentID,
		Quantity:      g.Quantity,
		Status:        int8(g.Status),
		StockReleased: released,
		ExpireTime:    g.ExpireTime,
		SuccessTime:   successTime,
	}
}
