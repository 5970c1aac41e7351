package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"flashmall/internal/pkg/constants"
	"flashmall/internal/pkg/httpclient"
	"flashmall/internal/service/promotion/domain/port"
)

// CatalogHTTPAdapter 是 port.ProductCatalog 的 HTTP 实现，
// 经 Nacos 发现商品中心实例。
type CatalogHTTPAdapter struct {
	client *httpclient.Client
}

func NewCatalogHTTPAdapter(client *httpclient.Client) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client}
}

type productDetailResponse struct {
	Code int              `json:"code"`
	Msg  string           `json:"msg"`
	Data port.ProductInfo `json:"data"`
}

func (a *CatalogHTTPAdapter) GetProduct(ctx context.Context, productID int64) (*port.ProductInfo, error) {
	params := url.Values{}
	params.Set("productId", strconv.FormatInt(productID, 10))

	var resp productDetailResponse
	if err := a.client.GetJSON(ctx, constants.ProductService, constants.ProductDetailPath, params, &resp); err != nil {
		return nil, fmt.Errorf("query product %d: %w", productID, err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("query product %d: code=%d msg=%s", productID, resp.Code, resp.Msg)
	}
	return &resp.Data, nil
}
