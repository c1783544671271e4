// Package metrics 提供 Prometheus 指标注册与暴露
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wyfcoding/poolsettlement/pkg/logger"
)

// Metrics 协议费服务指标集合
type Metrics struct {
	// HTTP 请求计数（按方法、路径、状态码）
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 累计入账的协议费（按资产，原生最小单位）
	FeesAccruedTotal *prometheus.CounterVec
	// 累计提取的协议费（按资产，原生最小单位）
	FeesCollectedTotal *prometheus.CounterVec
	// 当前待提取余额（按资产）
	AccruedBalance *prometheus.GaugeVec

	// 费率控制器拉取计数（按结果：ok, failed, budget_exhausted, invalid）
	ControllerFetchTotal *prometheus.CounterVec
	// 池初始化时回落为零费率的次数
	ZeroFeeFallbackTotal prometheus.Counter
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolsettlement",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "poolsettlement",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		FeesAccruedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolsettlement",
			Subsystem: serviceName,
			Name:      "fees_accrued_total",
			Help:      "Total protocol fees accrued, in native smallest units",
		}, []string{"asset"}),
		FeesCollectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolsettlement",
			Subsystem: serviceName,
			Name:      "fees_collected_total",
			Help:      "Total protocol fees collected, in native smallest units",
		}, []string{"asset"}),
		AccruedBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "poolsettlement",
			Subsystem: serviceName,
			Name:      "accrued_balance",
			Help:      "Current uncollected protocol fee balance per asset",
		}, []string{"asset"}),

		ControllerFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poolsettlement",
			Subsystem: serviceName,
			Name:      "controller_fetch_total",
			Help:      "Fee controller fetch attempts by outcome",
		}, []string{"outcome"}),
		ZeroFeeFallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "poolsettlement",
			Subsystem: serviceName,
			Name:      "zero_fee_fallback_total",
			Help:      "Pool initializations that fell back to a zero protocol fee",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.FeesAccruedTotal,
		m.FeesCollectedTotal,
		m.AccruedBalance,
		m.ControllerFetchTotal,
		m.ZeroFeeFallbackTotal,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			return err
		}
	}

	logger.Info(context.Background(), "metrics registered")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) {
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "starting metrics server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()
}
