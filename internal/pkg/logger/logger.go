package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"flashmall/internal/pkg/tracing"
)

// Init 配置全局 zerolog，所有服务在 main 里最先调用。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zlog.Logger = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx 返回带 trace_id 的 logger，便于日志和链路对齐。
// ctx 里没有有效 span 时退化为全局 logger。
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	if traceID := tracing.GetTraceIDFromContext(ctx); traceID != "" {
		l := zlog.With().Str("trace_id", traceID).Logger()
		return &l
	}
	return &zlog.Logger
}
