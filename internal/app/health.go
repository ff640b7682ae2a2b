package app

import (
	"github.com/gin-gonic/gin"

	"github.com/taoyao-code/ratesensor/internal/health"
	"github.com/taoyao-code/ratesensor/internal/httpserver"
	"github.com/taoyao-code/ratesensor/internal/transport"
)

// NewReady 就绪标志
func NewReady() *health.Readiness { return health.New() }

// NewHealthAggregator 创建聚合器，初始只检查字节通道
func NewHealthAggregator(port transport.Port) *health.Aggregator {
	return health.NewAggregator(health.NewTransportChecker(port))
}

// HealthRoutes 健康报告路由
func HealthRoutes(aggregator *health.Aggregator) httpserver.RouteRegistrar {
	return func(r gin.IRoutes) {
		health.RegisterHTTPRoutes(r, aggregator)
	}
}
