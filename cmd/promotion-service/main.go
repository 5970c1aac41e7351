package main

import (
	"context"
	"os"

	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"flashmall/internal/pkg/bootstrap"
	"flashmall/internal/pkg/config"
	"flashmall/internal/pkg/constants"
	"flashmall/internal/pkg/httpclient"
	"flashmall/internal/pkg/mq"
	"flashmall/internal/pkg/redis"
	"flashmall/internal/pkg/zookeeper"
	"flashmall/internal/service/promotion/application"
	"flashmall/internal/service/promotion/domain/port"
	"flashmall/internal/service/promotion/infrastructure"
	"flashmall/internal/service/promotion/infrastructure/adapter"
	"flashmall/internal/service/promotion/interfaces"
)

// main 是促销服务的组装根：创建并组装所有依赖，然后启动。
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

	redisClient := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()
	ledger, err := adapter.NewLimitRedisAdapter(redisClient)
	if err != nil {
		zlog.Fatal().Err(err).Msg("init limit ledger")
	}

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

	tracer := otel.Tracer(constants.PromotionService)

	inventory := application.NewInventoryService(goodsRepo, tracer)
	compensator := application.NewCompensator(goodsRepo, orderRepo, tracer)
	seckill := application.NewSeckillService(activityRepo, goodsRepo, inventory, ledger, producer, tracer)
	groups := application.NewGroupBuyService(activityRepo, goodsRepo, orderRepo, inventory, locker, compensator, producer, tracer)

	var sweeper *application.Sweeper
	if cfg.Sweeper.Embedded {
		sweeper = application.NewSweeper(activityRepo, orderRepo, groups, producer, tracer,
			cfg.Sweeper.Interval, cfg.Sweeper.BatchSize)
		sweeper.Start()
	}

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: constants.PromotionService,
		Port:        cfg.Service.Port,
		Config:      cfg,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			// 商品中心走 Nacos 发现；本地没有注册中心时用占位快照
			var catalog port.ProductCatalog
			if appCtx.Nacos != nil {
				catalog = adapter.NewCatalogHTTPAdapter(httpclient.NewClient(tracer, appCtx.Nacos))
			} else {
				catalog = adapter.NewCatalogStaticAdapter()
			}
			activities := application.NewActivityService(activityRepo, goodsRepo, catalog, producer, tracer)

			handler := interfaces.NewPromotionHandler(activities, seckill, groups)
			handler.RegisterRoutes(appCtx.Mux)
		},
		OnShutdown: func(_ context.Context) {
			if sweeper != nil {
				sweeper.Stop()
			}
		},
	})
}
