package adapter

import (
	"context"
	"fmt"

	"flashmall/internal/service/promotion/domain/port"
)

// CatalogStaticAdapter 在没有注册中心的本地环境里顶替商品中心，
// 返回占位快照，让创建活动流程可以跑通。
type CatalogStaticAdapter struct{}

func NewCatalogStaticAdapter() *CatalogStaticAdapter {
	return &CatalogStaticAdapter{}
}

func (a *CatalogStaticAdapter) GetProduct(_ context.Context, productID int64) (*port.ProductInfo, error) {
	return &port.ProductInfo{
		ProductID: productID,
		Name:      fmt.Sprintf("product-%d", productID),
	}, nil
}
