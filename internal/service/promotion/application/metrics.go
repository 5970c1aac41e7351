package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricReserve = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_stock_reserve_total",
		Help: "库存预占次数，按结果区分",
	}, []string{"result"})

	metricRelease = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_stock_release_total",
		Help: "库存归还次数",
	})

	metricGroupFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_group_finalized_total",
		Help: "成团次数",
	})

	metricGroupExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_group_expired_total",
		Help: "超时散团次数",
	})

	metricCompensation = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_compensation_total",
		Help: "补偿执行次数，按结果区分",
	}, []string{"outcome"})

	metricSweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "promo_sweeper_runs_total",
		Help: "清扫器执行轮次",
	})
)
