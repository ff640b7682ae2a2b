package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/metrics"
	"github.com/taoyao-code/ratesensor/internal/simulator"
	"github.com/taoyao-code/ratesensor/internal/transport"
)

// OpenDriverPort 打开驱动侧通道。
// kind=pipe 时在进程内启动一个模拟器接在管道对端（读超时沿用串口配置），
// 返回的 cleanup 停止该模拟器；其他类型 cleanup 为空操作。
func OpenDriverPort(ctx context.Context, cfg *cfgpkg.Config, logger *zap.Logger, m *metrics.AppMetrics) (transport.Port, func(), error) {
	if cfg.Transport.Kind != "pipe" {
		port, err := transport.Open(ctx, cfg.Transport, false)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s transport: %w", cfg.Transport.Kind, err)
		}
		logger.Info("transport opened", zap.String("kind", cfg.Transport.Kind))
		return port, func() {}, nil
	}

	host, dev := transport.NewPipe(cfg.Transport.Serial.ReadTimeout)
	sim := simulator.New(dev, cfg.Simulator, logger.Named("simulator"), m)
	simCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sim.Run(simCtx)
	}()
	logger.Info("in-process simulator attached", zap.Duration("cycle_period", cfg.Simulator.CyclePeriod))

	return host, func() {
		cancel()
		<-done
		_ = sim.Shutdown()
	}, nil
}

// OpenSimulatorPort 打开模拟器侧通道（TCP 作为被连接方）
func OpenSimulatorPort(ctx context.Context, cfg cfgpkg.TransportConfig, logger *zap.Logger) (transport.Port, error) {
	if cfg.Kind == "tcp" {
		logger.Info("waiting for driver connection", zap.String("addr", cfg.TCP.Addr))
	}
	port, err := transport.Open(ctx, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("open %s transport: %w", cfg.Kind, err)
	}
	logger.Info("transport opened", zap.String("kind", cfg.Kind))
	return port, nil
}
