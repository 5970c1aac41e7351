package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"flashmall/internal/pkg/logger"
	"flashmall/internal/service/promotion/application"
	"flashmall/internal/service/promotion/domain"
)

// PromotionHandler 封装促销服务的 HTTP 处理器。
type PromotionHandler struct {
	activities *application.ActivityService
	seckill    *application.SeckillService
	groups     *application.GroupBuyService
}

// NewPromotionHandler 创建 HTTP 处理器实例。
func NewPromotionHandler(
	activities *application.ActivityService,
	seckill *application.SeckillService,
	groups *application.GroupBuyService,
) *PromotionHandler {
	return &PromotionHandler{activities: activities, seckill: seckill, groups: groups}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *PromotionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /activities", h.handleCreateActivity)
	mux.HandleFunc("GET /activities", h.handleListActivities)
	mux.HandleFunc("GET /activities/{id}", h.handleGetActivity)
	mux.HandleFunc("PATCH /activities/{id}", h.handleUpdateActivity)
	mux.HandleFunc("DELETE /activities/{id}", h.handleDeleteActivity)

	mux.HandleFunc("POST /seckill/order", h.handleSeckillOrder)
	mux.HandleFunc("POST /seckill/cancel", h.handleSeckillCancel)

	mux.HandleFunc("POST /groupbuy/start", h.handleGroupStart)
	mux.HandleFunc("POST /groupbuy/join", h.handleGroupJoin)
	mux.HandleFunc("POST /groupbuy/cancel", h.handleGroupCancel)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.Handler())
}

func (h *PromotionHandler) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req application.CreateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	id, err := h.activities.CreateActivity(ctx, &req)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"activityId": id})
}

func (h *PromotionHandler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	kind, _ := strconv.Atoi(r.URL.Query().Get("kind"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	list, err := h.activities.ListActivities(ctx, domain.ActivityKind(kind), page, pageSize)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"list": list})
}

func (h *PromotionHandler) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid activity id", http.StatusBadRequest)
		return
	}

	detail, err := h.activities.GetActivityDetail(ctx, id)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *PromotionHandler) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid activity id", http.StatusBadRequest)
		return
	}

	var patch application.UpdateActivityPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.activities.UpdateActivity(ctx, id, &patch); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *PromotionHandler) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	id, err := pathID(r, "id")
	if err != nil {
		http.Error(w, "invalid activity id", http.StatusBadRequest)
		return
	}

	if err := h.activities.DeleteActivity(ctx, id); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type seckillOrderRequest struct {
	GoodsID  int64 `json:"goodsId"`
	Quantity int64 `json:"quantity"`
	UserID   int64 `json:"userId"`
}

func (h *PromotionHandler) handleSeckillOrder(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req seckillOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ok, err := h.seckill.SeckillOrder(ctx, req.GoodsID, req.Quantity, req.UserID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": ok})
}

type seckillCancelRequest struct {
	GoodsID  int64 `json:"goodsId"`
	Quantity int64 `json:"quantity"`
}

func (h *PromotionHandler) handleSeckillCancel(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req seckillCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.seckill.CancelSeckillOrder(ctx, req.GoodsID, req.Quantity); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

type groupStartRequest struct {
	GoodsID  int64 `json:"goodsId"`
	Quantity int64 `json:"quantity"`
	application.MemberRef
}

func (h *PromotionHandler) handleGroupStart(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req groupStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	leader, err := h.groups.StartGroupBuy(ctx, req.GoodsID, req.Quantity, req.MemberRef)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"groupOrderId": leader.ID,
		"expireTime":   leader.ExpireTime,
	})
}

type groupJoinRequest struct {
	LeaderOrderID string `json:"leaderOrderId"`
	Quantity      int64  `json:"quantity"`
	application.MemberRef
}

func (h *PromotionHandler) handleGroupJoin(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req groupJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	member, err := h.groups.JoinGroupBuy(ctx, req.LeaderOrderID, req.Quantity, req.MemberRef)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"groupOrderId": member.ID,
		"status":       member.Status,
	})
}

type groupCancelRequest struct {
	OrderID string `json:"orderId"`
}

func (h *PromotionHandler) handleGroupCancel(w http.ResponseWriter, r *http.Request) {
	ctx := extractTraceContext(r)

	var req groupCancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.groups.CancelGroupOrder(ctx, req.OrderID); err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func extractTraceContext(r *http.Request) context.Context {
	propagator := otel.GetTextMapPropagator()
	return propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError 按业务错误分类映射 HTTP 状态码。
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var status int
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindConflict, domain.KindResourceExhausted:
		status = http.StatusConflict
	case domain.KindInvalidState:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
		logger.Ctx(ctx).Error().Err(err).Msg("internal error")
	}
	http.Error(w, err.Error(), status)
}
