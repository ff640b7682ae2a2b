package bootstrap

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/taoyao-code/ratesensor/internal/app"
	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/driver"
	"github.com/taoyao-code/ratesensor/internal/scenario"
)

// RunDriver 驱动侧启动流程：打开通道，执行脚本，把每步结果写到 out
func RunDriver(ctx context.Context, cfg *cfgpkg.Config, log *zap.Logger, out io.Writer) error {
	runID := app.GenerateRunID("driver")
	log = log.With(zap.String("run_id", runID))
	log.Info("starting rate sensor driver", zap.String("transport", cfg.Transport.Kind))

	// ========== 阶段1: 基础组件 ==========
	_, appm, metricsHandler := app.NewMetrics()
	ready := app.NewReady()

	sc := scenario.Default()
	if cfg.Driver.Scenario != "" {
		loaded, err := scenario.Load(cfg.Driver.Scenario)
		if err != nil {
			return err
		}
		sc = loaded
	}
	log.Info("scenario loaded", zap.String("name", sc.Name), zap.Int("steps", len(sc.Steps)))

	// ========== 阶段2: 打开通道 ==========
	port, cleanup, err := app.OpenDriverPort(ctx, cfg, log, appm)
	if err != nil {
		log.Error("transport open failed", zap.Error(err))
		return err
	}
	defer cleanup()
	ready.SetPortReady(true)

	// ========== 阶段3: 可选组件 ==========
	redisClient, err := app.NewRedisClient(cfg.Redis, log)
	if err != nil {
		// 样本发布是可选功能，失败不阻断驱动
		log.Warn("redis unavailable, samples will not be published", zap.Error(err))
	}
	defer redisClient.Close()

	healthAgg := app.NewHealthAggregator(port)
	app.AddRedisChecker(healthAgg, redisClient)
	stopHTTP := app.StartHTTPServer(cfg, metricsHandler, ready.Ready, log, app.HealthRoutes(healthAgg))
	defer stopHTTP()

	// ========== 阶段4: 驱动与脚本 ==========
	drv := driver.New(port,
		driver.WithRetryLimit(cfg.Driver.RetryLimit),
		driver.WithLogger(log.Named("driver")),
		driver.WithMetrics(appm),
	)
	defer func() { _ = drv.Shutdown() }()
	if err := drv.Init(); err != nil {
		return err
	}
	ready.SetLoopReady(true)

	opts := []scenario.RunnerOption{
		scenario.WithLogger(log),
		scenario.WithObserver(func(res scenario.Result) {
			fmt.Fprintln(out, res)
			for _, s := range res.Samples {
				fmt.Fprintln(out, "  ", s)
			}
		}),
	}
	if cfg.Driver.PublishSamples {
		if pub := app.NewSamplePublisher(redisClient, cfg.Redis, runID, log); pub != nil {
			opts = append(opts, scenario.WithSink(pub))
		}
	}

	if _, err := scenario.NewRunner(drv, opts...).Run(ctx, sc); err != nil {
		log.Error("scenario failed", zap.Error(err))
		return err
	}
	log.Info("driver finished")
	return nil
}
