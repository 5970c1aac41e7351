package infrastructure

import (
	"context"
	"time"

	driver "github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"flashmall/internal/service/promotion/domain"
)

const mysqlErrDuplicateEntry = 1062

// isDuplicateEntry 判断是否唯一键冲突
func isDuplicateEntry(err error) bool {
	var mysqlErr *driver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

// GormActivityRepository 是 ActivityRepository 的 GORM 实现
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository 创建活动仓储实例
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

func (r *GormActivityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	model := ToActivityModel(activity)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateEntry(err) {
			return errors.WithStack(domain.ErrNameExists)
		}
		return errors.WithStack(err)
	}
	activity.ID = model.ID
	activity.CreatedAt = model.CreatedAt
	activity.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *GormActivityRepository) FindByID(ctx context.Context, id int64) (*domain.Activity, error) {
	var model ActivityModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = 0", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithStack(domain.ErrActivityNotFound)
		}
		return nil, errors.WithStack(err)
	}
	return ToDomainActivity(&model), nil
}

func (r *GormActivityRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ActivityModel{}).
		Where("name = ? AND deleted = 0", name).
		Count(&count).Error
	if err != nil {
		return false, errors.WithStack(err)
	}
	return count > 0, nil
}

func (r *GormActivityRepository) Update(ctx context.Context, activity *domain.Activity) error {
	model := ToActivityModel(activity)
	err := r.db.WithContext(ctx).Model(&ActivityModel{}).
		Where("id = ? AND deleted = 0", activity.ID).
		Updates(map[string]interface{}{
			"name":                   model.Name,
			"code":                   model.Code,
			"description":            model.Description,
			"share_title":            model.ShareTitle,
			"share_image":            model.ShareImage,
			"remark":                 model.Remark,
			"start_time":             model.StartTime,
			"end_time":               model.EndTime,
			"preview_window_minutes": model.PreviewWindowMinutes,
			"valid_hours":            model.ValidHours,
		}).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return errors.WithStack(domain.ErrNameExists)
		}
		return errors.WithStack(err)
	}
	return nil
}

func (r *GormActivityRepository) UpdateStatus(ctx context.Context, id int64, from, to domain.ActivityStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&ActivityModel{}).
		Where("id = ? AND status = ? AND deleted = 0", id, int8(from)).
		Update("status", int8(to))
	if res.Error != nil {
		return false, errors.WithStack(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormActivityRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&ActivityModel{}).
		Where("id = ? AND deleted = 0", id).
		Update("deleted", 1)
	if res.Error != nil {
		return errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.WithStack(domain.ErrActivityNotFound)
	}
	return nil
}

func (r *GormActivityRepository) List(ctx context.Context, kind domain.ActivityKind, offset, limit int) ([]*domain.Activity, error) {
	query := r.db.WithContext(ctx).Model(&ActivityModel{}).Where("deleted = 0")
	if kind != 0 {
		query = query.Where("kind = ?", int8(kind))
	}

	var models []*ActivityModel
	err := query.Order("start_time DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := make([]*domain.Activity, 0, len(models))
	for _, m := range models {
		out = append(out, ToDomainActivity(m))
	}
	return out, nil
}

func (r *GormActivityRepository) FindStale(ctx context.Context, now time.Time, limit int) ([]*domain.Activity, error) {
	var models []*ActivityModel
	err := r.db.WithContext(ctx).
		Where("deleted = 0 AND ((status = ? AND start_time <= ?) OR (status = ? AND end_time < ?))",
			int8(domain.ActivityWaiting), now, int8(domain.ActivityActive), now).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := make([]*domain.Activity, 0, len(models))
	for _, m := range models {
		out = append(out, ToDomainActivity(m))
	}
	return out, nil
}

// GormGoodsRepository 是 GoodsRepository 的 GORM 实现。
// 库存变更只走条件 UPDATE，整个仓储不提供整行回写。
type GormGoodsRepository struct {
	db *gorm.DB
}

// NewGormGoodsRepository 创建促销商品仓储实例
func NewGormGoodsRepository(db *gorm.DB) *GormGoodsRepository {
	return &GormGoodsRepository{db: db}
}

func (r *GormGoodsRepository) Create(ctx context.Context, goods *domain.Goods) error {
	model := ToGoodsModel(goods)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return errors.WithStack(err)
	}
	goods.ID = model.ID
	return nil
}

func (r *GormGoodsRepository) FindByID(ctx context.Context, id int64) (*domain.Goods, error) {
	var model GoodsModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted = 0", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithStack(domain.ErrGoodsNotFound)
		}
		return nil, errors.WithStack(err)
	}
	return ToDomainGoods(&model), nil
}

func (r *GormGoodsRepository) ListByActivity(ctx context.Context, activityID int64) ([]*domain.Goods, error) {
	var models []*GoodsModel
	err := r.db.WithContext(ctx).
		Where("activity_id = ? AND deleted = 0", activityID).
		Order("sort_order ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := make([]*domain.Goods, 0, len(models))
	for _, m := range models {
		out = append(out, ToDomainGoods(m))
	}
	return out, nil
}

// ReserveStock 单条条件 UPDATE 完成扣减，stock >= qty 不满足时零行命中。
// 读改写两步会在并发下超卖，这里是库存安全的全部依赖。
func (r *GormGoodsRepository) ReserveStock(ctx context.Context, goodsID, qty int64) error {
	res := r.db.WithContext(ctx).Model(&GoodsModel{}).
		Where("id = ? AND deleted = 0 AND stock >= ?", goodsID, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"sold_count": gorm.Expr("sold_count + ?", qty),
		})
	if res.Error != nil {
		return errors.WithStack(res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// 零行命中：区分商品不存在和库存不足
	var count int64
	if err := r.db.WithContext(ctx).Model(&GoodsModel{}).
		Where("id = ? AND deleted = 0", goodsID).
		Count(&count).Error; err != nil {
		return errors.WithStack(err)
	}
	if count == 0 {
		return errors.WithStack(domain.ErrGoodsNotFound)
	}
	return errors.WithStack(domain.ErrStockInsufficient)
}

// ReleaseStock 归还量按 sold_count 截断，保证 stock 不会超过初始库存。
// MySQL 的 SET 子句从左到右求值，stock 先用旧的 sold_count 算增量，
// 两个 LEAST 取到同一个截断值。
func (r *GormGoodsRepository) ReleaseStock(ctx context.Context, goodsID, qty int64) error {
	res := r.db.WithContext(ctx).Exec(
		"UPDATE promo_activity_goods"+
			" SET stock = stock + LEAST(?, sold_count), sold_count = sold_count - LEAST(?, sold_count)"+
			" WHERE id = ? AND deleted = 0",
		qty, qty, goodsID)
	if res.Error != nil {
		return errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.WithStack(domain.ErrGoodsNotFound)
	}
	return nil
}

// GormGroupOrderRepository 是 GroupOrderRepository 的 GORM 实现
type GormGroupOrderRepository struct {
	db *gorm.DB
}

// NewGormGroupOrderRepository 创建拼团单仓储实例
func NewGormGroupOrderRepository(db *gorm.DB) *GormGroupOrderRepository {
	return &GormGroupOrderRepository{db: db}
}

func (r *GormGroupOrderRepository) Create(ctx context.Context, order *domain.GroupOrder) error {
	model := ToGroupOrderModel(order)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		// order_id 唯一键冲突说明同一订单重复提交，按已参团处理
		if isDuplicateEntry(err) {
			return errors.WithStack(domain.ErrGroupAlreadyJoined)
		}
		return errors.WithStack(err)
	}
	order.ID = model.ID
	order.CreatedAt = model.CreatedAt
	return nil
}

func (r *GormGroupOrderRepository) FindByID(ctx context.Context, id int64) (*domain.GroupOrder, error) {
	var model GroupOrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithStack(domain.ErrGroupOrderNotFound)
		}
		return nil, errors.WithStack(err)
	}
	return ToDomainGroupOrder(&model), nil
}

func (r *GormGroupOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.GroupOrder, error) {
	var model GroupOrderModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.WithStack(domain.ErrGroupOrderNotFound)
		}
		return nil, errors.WithStack(err)
	}
	return ToDomainGroupOrder(&model), nil
}

func (r *GormGroupOrderRepository) ListPendingByLeader(ctx context.Context, leaderID int64) ([]*domain.GroupOrder, error) {
	var models []*GroupOrderModel
	err := r.db.WithContext(ctx).
		Where("(id = ? OR parent_id = ?) AND status = ?", leaderID, leaderID, int8(domain.GroupPending)).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := make([]*domain.GroupOrder, 0, len(models))
	for _, m := range models {
		out = append(out, ToDomainGroupOrder(m))
	}
	return out, nil
}

func (r *GormGroupOrderRepository) CountActiveByMember(ctx context.Context, leaderID, memberID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&GroupOrderModel{}).
		Where("(id = ? OR parent_id = ?) AND member_id = ? AND status IN ?",
			leaderID, leaderID, memberID,
			[]int8{int8(domain.GroupPending), int8(domain.GroupSuccess)}).
		Count(&count).Error
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return count, nil
}

// FinalizeGroup 把团长及其下所有 Pending 记录一次性翻成 Success。
// 单条 UPDATE 天然原子，不需要事务包裹。
func (r *GormGroupOrderRepository) FinalizeGroup(ctx context.Context, leaderID int64, successTime time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&GroupOrderModel{}).
		Where("(id = ? OR parent_id = ?) AND status = ?", leaderID, leaderID, int8(domain.GroupPending)).
		Updates(map[string]interface{}{
			"status":       int8(domain.GroupSuccess),
			"success_time": successTime,
		})
	if res.Error != nil {
		return 0, errors.WithStack(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormGroupOrderRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.GroupOrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&GroupOrderModel{}).
		Where("id = ? AND status = ?", id, int8(from)).
		Update("status", int8(to))
	if res.Error != nil {
		return false, errors.WithStack(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *GormGroupOrderRepository) MarkStockReleased(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Model(&GroupOrderModel{}).
		Where("id = ?", id).
		Update("stock_released", 1).Error
	return errors.WithStack(err)
}

func (r *GormGroupOrderRepository) FindExpiredPendingLeaders(ctx context.Context, now time.Time, limit int) ([]*domain.GroupOrder, error) {
	var models []*GroupOrderModel
	err := r.db.WithContext(ctx).
		Where("role = ? AND status = ? AND expire_time < ?",
			int8(domain.RoleLeader), int8(domain.GroupPending), now).
		Order("expire_time ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}

	out := make([]*domain.GroupOrder, 0, len(models))
	for _, m := range models {
		out = append(out, ToDomainGroupOrder(m))
	}
	return out, nil
}
