package constants

// 服务名，与 Nacos 注册名保持一致。
const (
	PromotionService = "promotion-service"
	ExpirySweeper    = "expiry-sweeper"
	PushGateway      = "push-gateway"
	ProductService   = "product-service"
)

// 商品中心内部接口路径。
const (
	ProductDetailPath = "/internal/products/detail"
)
