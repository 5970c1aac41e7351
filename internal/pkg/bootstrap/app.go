package bootstrap

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"flashmall/internal/pkg/config"
	"flashmall/internal/pkg/logger"
	"flashmall/internal/pkg/nacos"
	"flashmall/internal/pkg/tracing"
)

// AppCtx 在注册路由时暴露给业务方的句柄。
type AppCtx struct {
	Mux   *http.ServeMux
	Nacos *nacos.Client
}

// AppInfo 描述一个服务启动所需的全部信息。
type AppInfo struct {
	ServiceName      string
	Port             int
	Config           *config.Config
	RegisterHandlers func(appCtx AppCtx)
	// OnShutdown 在 HTTP 服务关停前执行，用于停掉后台任务、刷掉缓冲。
	OnShutdown func(ctx context.Context)
}

// StartService 封装所有服务共用的启动与优雅关停流程：
// 日志、链路、可选的 Nacos 注册、HTTP 监听、信号处理。
func StartService(info AppInfo) {
	logger.Init(info.ServiceName)

	tp, err := tracing.InitTracerProvider(info.ServiceName, info.Config.Jaeger.Endpoint)
	if err != nil {
		zlog.Fatal().Err(err).Msg("init tracer provider")
	}

	var registry *nacos.Client
	var localIP string
	if info.Config.Nacos.Addrs != "" {
		registry, err = nacos.NewClient(info.Config.Nacos.Addrs, info.Config.Nacos.Namespace, info.Config.Nacos.Group)
		if err != nil {
			zlog.Fatal().Err(err).Msg("init nacos client")
		}
		localIP, err = outboundIP()
		if err != nil {
			zlog.Fatal().Err(err).Msg("resolve outbound ip")
		}
		if err := registry.RegisterServiceInstance(info.ServiceName, localIP, info.Port); err != nil {
			zlog.Fatal().Err(err).Msg("register service instance")
		}
	}

	mux := http.NewServeMux()
	if info.RegisterHandlers != nil {
		info.RegisterHandlers(AppCtx{Mux: mux, Nacos: registry})
	}

	server := &http.Server{Addr: ":" + strconv.Itoa(info.Port), Handler: mux}
	go func() {
		zlog.Info().Int("port", info.Port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("http server exited")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 关停顺序与启动相反：先摘流量，再停业务任务，最后刷 trace 缓冲
	if registry != nil {
		if err := registry.DeregisterServiceInstance(info.ServiceName, localIP, info.Port); err != nil {
			zlog.Error().Err(err).Msg("deregister from nacos")
		}
	}
	if info.OnShutdown != nil {
		info.OnShutdown(ctx)
	}
	if err := server.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("shutdown http server")
	}
	if err := tp.Shutdown(ctx); err != nil {
		zlog.Error().Err(err).Msg("shutdown tracer provider")
	}

	zlog.Info().Msg("bye")
}

// outboundIP 取本机对外 IP，用于注册中心上报。
func outboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
