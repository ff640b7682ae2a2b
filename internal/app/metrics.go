package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/taoyao-code/ratesensor/internal/metrics"
)

// NewMetrics 初始化注册表、业务指标与暴露处理器
func NewMetrics() (*prometheus.Registry, *metrics.AppMetrics, http.Handler) {
	reg := metrics.NewRegistry()
	return reg, metrics.NewAppMetrics(reg), metrics.Handler(reg)
}
