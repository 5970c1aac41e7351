package application

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"flashmall/internal/pkg/logger"
	"flashmall/internal/service/promotion/domain"
	"flashmall/internal/service/promotion/domain/port"
)

// ActivityService 活动登记簿：负责促销活动的创建、查询、修改、删除，
// 以及读路径上的状态惰性重算。
type ActivityService struct {
	activities domain.ActivityRepository
	goods      domain.GoodsRepository
	catalog    port.ProductCatalog
	producer   port.EventProducer
	tracer     trace.Tracer
}

// NewActivityService 创建活动服务。
func NewActivityService(
	activities domain.ActivityRepository,
	goods domain.GoodsRepository,
	catalog port.ProductCatalog,
	producer port.EventProducer,
	tracer trace.Tracer,
) *ActivityService {
	return &ActivityService{
		activities: activities,
		goods:      goods,
		catalog:    catalog,
		producer:   producer,
		tracer:     tracer,
	}
}

// CreateActivity 创建活动及其促销商品，返回活动 ID。
// 同名未删除活动存在时返回 ErrNameExists。
func (s *ActivityService) CreateActivity(ctx context.Context, req *CreateActivityRequest) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.CreateActivity")
	defer span.End()
	span.SetAttributes(attribute.String("activity.name", req.Name))

	if err := validateCreate(req); err != nil {
		return 0, err
	}

	exists, err := s.activities.ExistsByName(ctx, req.Name)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, domain.ErrNameExists
	}

	now := time.Now()
	act := &domain.Activity{
		Name:          req.Name,
		Code:          req.Code,
		Kind:          req.Kind,
		Description:   req.Description,
		ShareTitle:    req.ShareTitle,
		ShareImage:    req.ShareImage,
		Remark:        req.Remark,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		PreviewWindow: time.Duration(req.PreviewWindowMinutes) * time.Minute,
		ValidHours:    req.ValidHours,
		Status:        initialStatus(req, now),
	}
	if err := s.activities.Create(ctx, act); err != nil {
		return 0, err
	}

	// 商品快照必须拉全，任何一个失败整体创建失败，不留半配置的活动
	for _, spec := range req.Goods {
		info, err := s.catalog.GetProduct(ctx, spec.ProductID)
		if err != nil {
			return 0, fmt.Errorf("lookup product %d: %w", spec.ProductID, err)
		}
		g := &domain.Goods{
			ActivityID:    act.ID,
			ProductID:     spec.ProductID,
			ProductName:   info.Name,
			ProductImage:  info.Image,
			OriginalPrice: info.OriginalPrice,
			PromoPrice:    spec.PromoPrice,
			Stock:         spec.Stock,
			SoldCount:     0,
			LimitPerUser:  spec.LimitPerUser,
			GroupCount:    spec.GroupCount,
			SortOrder:     spec.SortOrder,
		}
		if err := s.goods.Create(ctx, g); err != nil {
			return 0, err
		}
	}

	logger.Ctx(ctx).Info().Int64("activity_id", act.ID).Str("name", act.Name).Msg("activity created")
	return act.ID, nil
}

// GetActivityDetail 返回活动与商品列表，读路径上惰性重算状态，
// 变化会持久化，保证多实例读到一致的状态。
func (s *ActivityService) GetActivityDetail(ctx context.Context, id int64) (*ActivityDetail, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.GetActivityDetail")
	defer span.End()
	span.SetAttributes(attribute.Int64("activity.id", id))

	act, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := refreshActivityStatus(ctx, s.activities, s.producer, act, now); err != nil {
		return nil, err
	}

	goods, err := s.goods.ListByActivity(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ActivityDetail{
		Activity:  act,
		Goods:     goods,
		InPreview: act.InPreview(now),
	}, nil
}

// UpdateActivity 按补丁更新活动。进行中的活动只允许修改展示类字段，
// 补丁里出现其它字段即整体拒绝（ErrCannotUpdate），不做部分应用。
func (s *ActivityService) UpdateActivity(ctx context.Context, id int64, patch *UpdateActivityPatch) error {
	ctx, span := s.tracer.Start(ctx, "promotion.UpdateActivity")
	defer span.End()
	span.SetAttributes(attribute.Int64("activity.id", id))

	act, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := refreshActivityStatus(ctx, s.activities, s.producer, act, time.Now()); err != nil {
		return err
	}

	if act.Status == domain.ActivityActive && patch.touchesRestricted() {
		return domain.ErrCannotUpdate
	}

	if patch.Name != nil && *patch.Name != act.Name {
		exists, err := s.activities.ExistsByName(ctx, *patch.Name)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrNameExists
		}
		act.Name = *patch.Name
	}
	if patch.Code != nil {
		act.Code = *patch.Code
	}
	if patch.StartTime != nil {
		act.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		act.EndTime = *patch.EndTime
	}
	if patch.PreviewWindowMinutes != nil {
		act.PreviewWindow = time.Duration(*patch.PreviewWindowMinutes) * time.Minute
	}
	if patch.ValidHours != nil {
		act.ValidHours = *patch.ValidHours
	}
	if patch.Description != nil {
		act.Description = *patch.Description
	}
	if patch.ShareTitle != nil {
		act.ShareTitle = *patch.ShareTitle
	}
	if patch.ShareImage != nil {
		act.ShareImage = *patch.ShareImage
	}
	if patch.Remark != nil {
		act.Remark = *patch.Remark
	}

	return s.activities.Update(ctx, act)
}

// DeleteActivity 软删除活动。进行中的活动拒绝删除。
func (s *ActivityService) DeleteActivity(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "promotion.DeleteActivity")
	defer span.End()
	span.SetAttributes(attribute.Int64("activity.id", id))

	act, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := refreshActivityStatus(ctx, s.activities, s.producer, act, time.Now()); err != nil {
		return err
	}
	if act.Status == domain.ActivityActive {
		return domain.ErrCannotDelete
	}

	return s.activities.SoftDelete(ctx, id)
}

// ListActivities 分页列出某类活动，状态逐条惰性重算。
func (s *ActivityService) ListActivities(ctx context.Context, kind domain.ActivityKind, page, pageSize int) ([]*domain.Activity, error) {
	ctx, span := s.tracer.Start(ctx, "promotion.ListActivities")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	list, err := s.activities.List(ctx, kind, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, act := range list {
		if err := refreshActivityStatus(ctx, s.activities, s.producer, act, now); err != nil {
			logger.Ctx(ctx).Error().Err(err).Int64("activity_id", act.ID).Msg("refresh activity status")
		}
	}
	return list, nil
}

func validateCreate(req *CreateActivityRequest) error {
	if req.Name == "" {
		return fmt.Errorf("activity name is required")
	}
	if req.Kind != domain.KindSeckill && req.Kind != domain.KindGroupBuy {
		return fmt.Errorf("unknown activity kind: %d", req.Kind)
	}
	if !req.EndTime.After(req.StartTime) {
		return fmt.Errorf("endTime must be after startTime")
	}
	if req.Kind == domain.KindGroupBuy && req.ValidHours <= 0 {
		return fmt.Errorf("validHours is required for group-buy activity")
	}
	for _, g := range req.Goods {
		if g.Stock < 0 {
			return fmt.Errorf("goods stock must be non-negative, product %d", g.ProductID)
		}
		if req.Kind == domain.KindGroupBuy && g.GroupCount < 2 {
			return fmt.Errorf("groupCount must be at least 2, product %d", g.ProductID)
		}
	}
	return nil
}

func initialStatus(req *CreateActivityRequest, now time.Time) domain.ActivityStatus {
	// 创建时即处于时间窗口内的活动直接置为进行中
	tmp := domain.Activity{StartTime: req.StartTime, EndTime: req.EndTime}
	return tmp.ComputeStatus(now)
}
