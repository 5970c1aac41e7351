package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"flashmall/internal/pkg/logger"
	"flashmall/internal/service/promotion/domain"
	"flashmall/internal/service/promotion/domain/port"
)

// Sweeper 过期清扫器：周期性兜底惰性重算覆盖不到的记录。
//
//   - 活动：状态与时间窗口不一致的批量重算；
//   - 拼团：过了成团截止时间仍 Pending 的团整团散掉。
//
// 散团走与参团相同的团长锁，保证与在途 Join 互斥；
// 多实例部署时锁本身保证同一团只被一个实例收尾，
// 条件状态流转保证即使重复扫到也只补偿一次。
type Sweeper struct {
	activities domain.ActivityRepository
	orders     domain.GroupOrderRepository
	groups     *GroupBuyService
	producer   port.EventProducer
	tracer     trace.Tracer

	interval  time.Duration
	batchSize int
	parallel  int

	running  atomic.Bool
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSweeper 创建清扫器。interval/batchSize 非法时回落到默认值。
func NewSweeper(
	activities domain.ActivityRepository,
	orders domain.GroupOrderRepository,
	groups *GroupBuyService,
	producer port.EventProducer,
	tracer trace.Tracer,
	interval time.Duration,
	batchSize int,
) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		activities: activities,
		orders:     orders,
		groups:     groups,
		producer:   producer,
		tracer:     tracer,
		interval:   interval,
		batchSize:  batchSize,
		parallel:   8,
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start 启动后台清扫循环。重复调用无效果。
func (s *Sweeper) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	go s.loop()
}

// Stop 停止清扫循环并等待当前一轮结束。
func (s *Sweeper) Stop() {
	if !s.running.Load() {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.done
}

func (s *Sweeper) loop() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			s.RunOnce(ctx)
			cancel()
		}
	}
}

// RunOnce 执行一轮清扫。单条记录失败只记日志，不打断整轮。
func (s *Sweeper) RunOnce(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "sweeper.RunOnce")
	defer span.End()
	metricSweepRuns.Inc()

	s.sweepActivities(ctx)
	s.sweepGroups(ctx)
}

func (s *Sweeper) sweepActivities(ctx context.Context) {
	now := time.Now()
	stale, err := s.activities.FindStale(ctx, now, s.batchSize)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("sweep: find stale activities")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for _, act := range stale {
		act := act
		g.Go(func() error {
			if err := refreshActivityStatus(gctx, s.activities, s.producer, act, now); err != nil {
				logger.Ctx(gctx).Error().Err(err).
					Int64("activity_id", act.ID).
					Msg("sweep: refresh activity status")
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(stale) > 0 {
		logger.Ctx(ctx).Info().Int("count", len(stale)).Msg("sweep: activities refreshed")
	}
}

func (s *Sweeper) sweepGroups(ctx context.Context) {
	leaders, err := s.orders.FindExpiredPendingLeaders(ctx, time.Now(), s.batchSize)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("sweep: find expired leaders")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for _, leader := range leaders {
		leaderID := leader.ID
		g.Go(func() error {
			// CheckGroupStatus 在团长锁内重新加载并判定，
			// 扫描结果过期（团刚好成了）时自动退化为无操作
			if err := s.groups.CheckGroupStatus(gctx, leaderID); err != nil {
				logger.Ctx(gctx).Error().Err(err).
					Int64("leader_id", leaderID).
					Msg("sweep: expire group")
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(leaders) > 0 {
		logger.Ctx(ctx).Info().Int("count", len(leaders)).Msg("sweep: expired groups processed")
	}
}
