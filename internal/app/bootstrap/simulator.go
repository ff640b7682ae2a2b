package bootstrap

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/ratesensor/internal/app"
	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/health"
	"github.com/taoyao-code/ratesensor/internal/simulator"
)

// RunSimulator 模拟器启动流程：打开通道后按周期运行，直到 ctx 取消
func RunSimulator(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger) error {
	log = log.With(zap.String("run_id", app.GenerateRunID("simulator")))
	log.Info("starting rate sensor simulator", zap.String("transport", cfg.Transport.Kind))

	// ========== 阶段1: 基础组件 ==========
	_, appm, metricsHandler := app.NewMetrics()
	ready := app.NewReady()

	// ========== 阶段2: 打开通道（TCP 时阻塞到驱动接入）==========
	port, err := app.OpenSimulatorPort(ctx, cfg.Transport, log)
	if err != nil {
		log.Error("transport open failed", zap.Error(err))
		return err
	}
	ready.SetPortReady(true)

	sim := simulator.New(port, cfg.Simulator, log, appm)
	defer func() { _ = sim.Shutdown() }()

	// ========== 阶段3: 状态服务 ==========
	healthAgg := app.NewHealthAggregator(port)
	healthAgg.AddChecker(health.NewLoopChecker("simulator", sim.Running))
	stopHTTP := app.StartHTTPServer(cfg, metricsHandler, ready.Ready, log,
		app.HealthRoutes(healthAgg),
		func(r gin.IRoutes) {
			r.GET("/state", func(c *gin.Context) { c.JSON(http.StatusOK, sim.Snapshot()) })
		},
	)
	defer stopHTTP()

	// ========== 阶段4: 周期循环 ==========
	ready.SetLoopReady(true)
	err = sim.Run(ctx)
	ready.SetLoopReady(false)
	log.Info("shutdown complete")
	return err
}
