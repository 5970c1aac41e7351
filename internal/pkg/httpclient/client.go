package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"flashmall/internal/pkg/nacos"
)

// Client 可追踪的服务间 HTTP 客户端，经由 Nacos 做实例发现。
type Client struct {
	tracer     trace.Tracer
	registry   *nacos.Client
	httpClient *http.Client
}

// NewClient 创建客户端。不设置全局 Timeout，
// 超时完全由每次请求传入的 ctx 控制。
func NewClient(tracer trace.Tracer, registry *nacos.Client) *Client {
	return &Client{
		tracer:   tracer,
		registry: registry,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

// GetJSON 发现目标服务实例，GET 指定路径并把响应体解析到 out。
func (c *Client) GetJSON(ctx context.Context, serviceName, path string, params url.Values, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "call-"+serviceName, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	instance, err := c.registry.SelectOneHealthyInstance(serviceName)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	target := url.URL{
		Scheme:   "http",
		Host:     fmt.Sprintf("%s:%d", instance.Ip, instance.Port),
		Path:     path,
		RawQuery: params.Encode(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		attribute.String("http.url", target.String()),
		attribute.String("http.method", http.MethodGet),
	)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("service %s returned status %s", serviceName, resp.Status)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return err
	}
	return json.Unmarshal(body, out)
}
