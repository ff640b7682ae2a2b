package app

import (
	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/health"
	redisstorage "github.com/taoyao-code/ratesensor/internal/storage/redis"
)

// NewRedisClient 创建 Redis 客户端；未启用时返回 nil, nil
func NewRedisClient(cfg cfgpkg.RedisConfig, logger *zap.Logger) (*redisstorage.Client, error) {
	if !cfg.Enabled {
		logger.Info("redis is disabled, skipping initialization")
		return nil, nil
	}

	client, err := redisstorage.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("redis client initialized",
		zap.String("addr", cfg.Addr),
		zap.Int("pool_size", cfg.PoolSize))
	return client, nil
}

// NewSamplePublisher 创建样本发布器；client 为 nil 时返回 nil
func NewSamplePublisher(client *redisstorage.Client, cfg cfgpkg.RedisConfig, runID string, logger *zap.Logger) *redisstorage.SamplePublisher {
	if client == nil {
		return nil
	}
	p := redisstorage.NewSamplePublisher(client, cfg.Channel, runID, logger)
	logger.Info("sample publisher ready", zap.String("channel", p.Channel()))
	return p
}

// AddRedisChecker 添加 Redis 检查器到聚合器
func AddRedisChecker(aggregator *health.Aggregator, client *redisstorage.Client) {
	if client != nil {
		aggregator.AddChecker(health.NewRedisChecker(client))
	}
}
