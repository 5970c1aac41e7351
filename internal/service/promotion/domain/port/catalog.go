package port

import "context"

// ProductInfo 商品中心返回的快照字段。
type ProductInfo struct {
	ProductID     int64  `json:"productId"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	OriginalPrice int64  `json:"originalPrice"` // 单位：分
}

// ProductCatalog 商品中心的出站端口。
// 促销商品创建时从这里拉取名称/图片/原价做快照。
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID int64) (*ProductInfo, error)
}
