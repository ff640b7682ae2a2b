package app

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/httpserver"
)

// StartHTTPServer 按配置创建并在后台启动状态服务；未启用时返回 nil
// 返回的 stop 在 10 秒内优雅关闭服务，可重复调用。
func StartHTTPServer(cfg *cfgpkg.Config, metricsHandler http.Handler, readyFn func() bool, logger *zap.Logger, extra ...httpserver.RouteRegistrar) (stop func()) {
	if !cfg.HTTP.Enable {
		return func() {}
	}
	var metricsPath string
	if cfg.Metrics.Enable {
		metricsPath = cfg.Metrics.Path
	} else {
		metricsHandler = nil
	}
	srv := httpserver.New(cfg.HTTP, metricsPath, metricsHandler, readyFn, extra...)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("http server error", zap.Error(err))
		}
	}()
	logger.Info("http server started", zap.String("addr", cfg.HTTP.Addr))

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		logger.Info("http server stopped")
	}
}
