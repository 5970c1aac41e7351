package main

import (
	"context"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"flashmall/internal/pkg/bootstrap"
	"flashmall/internal/pkg/config"
	"flashmall/internal/pkg/constants"
	"flashmall/internal/pkg/mq"
	"flashmall/internal/pkg/zookeeper"
	"flashmall/internal/service/promotion/application"
	"flashmall/internal/service/promotion/domain/port"
	"flashmall/internal/service/promotion/infrastructure"
	"flashmall/internal/service/promotion/infrastructure/adapter"
)

// main 是独立清扫服务的组装根。大规模部署时把清扫从促销服务里
// 拆出来，避免扫描批次和在线流量抢资源；此时促销服务应关闭内嵌清扫。
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		zlog.Fatal().Err(err).Msg("load config")
	}

	db, err := infrastructure.NewDB(cfg.MySQL.DSN)
	if err != nil {
		zlog.Fatal().Err(err).Msg("init mysql")
	}
	activityRepo := infrastructure.NewGormActivityRepository(db)
	goodsRepo := infrastructure.NewGormGoodsRepository(db)
	orderRepo := infrastructure.NewGormGroupOrderRepository(db)

	// 多实例下必须与促销服务共用同一把团长锁，否则散团会与参团竞态
	var locker port.GroupLocker
	if len(cfg.Zookeeper.Addrs) > 0 {
		zkConn, err := zookeeper.Connect(cfg.Zookeeper.Addrs, 0)
		if err != nil {
			zlog.Fatal().Err(err).Msg("connect zookeeper")
		}
		defer zkConn.Close()
		locker = adapter.NewGroupZkLocker(zkConn)
	} else {
		zlog.Warn().Msg("zookeeper not configured, using in-process group locks")
		locker = adapter.NewGroupLocalLocker()
	}

	writer := mq.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer writer.Close()
	producer := infrastructure.NewPromotionEventProducer(writer)

	tracer := otel.Tracer(constants.ExpirySweeper)

	inventory := application.NewInventoryService(goodsRepo, tracer)
	compensator := application.NewCompensator(goodsRepo, orderRepo, tracer)
	groups := application.NewGroupBuyService(activityRepo, goodsRepo, orderRepo, inventory, locker, compensator, producer, tracer)

	sweeper := application.NewSweeper(activityRepo, orderRepo, groups, producer, tracer,
		cfg.Sweeper.Interval, cfg.Sweeper.BatchSize)
	sweeper.Start()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.ExpirySweeper,
		Port:        cfg.Service.Port,
		Config:      cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			appCtx.Mux.Handle("GET /metrics", promhttp.Handler())
		},
		OnShutdown: func(_ context.Context) {
			sweeper.Stop()
		},
	})
}
