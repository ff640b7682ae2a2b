package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taoyao-code/ratesensor/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: $RATESENSOR_CONFIG or ./configs/simulator.yaml)")
	flag.Parse()

	// 1) 加载配置
	cfg, err := cfgpkg.Load(*configPath, "simulator")
	if err != nil {
		panic(err)
	}

	// 2) 初始化日志
	logger, err := logging.InitLogger(cfg.Logging)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	gin.SetMode(gin.ReleaseMode)

	// 3) 运行直到 SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.RunSimulator(ctx, cfg, zap.L()); err != nil {
		zap.L().Error("simulator exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
