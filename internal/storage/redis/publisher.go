package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
)

// DefaultChannel 样本发布频道
const DefaultChannel = "ratesensor:samples"

// publisher go-redis 的 PUBLISH 能力（*redis.Client 满足）
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// SampleMessage 频道上的单条样本
type SampleMessage struct {
	RunID      string  `json:"run_id"`
	Count      uint16  `json:"count"`
	XRate      float32 `json:"x_rate"`
	YRate      float32 `json:"y_rate"`
	ZRate      float32 `json:"z_rate"`
	ReceivedAt int64   `json:"received_at"` // unix 毫秒
}

// SamplePublisher 将驱动收到的数据帧逐条发布到 Redis 频道
type SamplePublisher struct {
	pub     publisher
	channel string
	runID   string
	log     *zap.Logger
	now     func() time.Time
}

// NewSamplePublisher 创建发布器；channel 为空时使用 DefaultChannel
func NewSamplePublisher(c *Client, channel, runID string, logger *zap.Logger) *SamplePublisher {
	return newSamplePublisher(c.Client, channel, runID, logger)
}

func newSamplePublisher(pub publisher, channel, runID string, logger *zap.Logger) *SamplePublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SamplePublisher{pub: pub, channel: channel, runID: runID, log: logger, now: time.Now}
}

// Channel 发布频道
func (p *SamplePublisher) Channel() string { return p.channel }

// Publish 发布一批样本，遇到第一个失败即返回
func (p *SamplePublisher) Publish(ctx context.Context, samples []gyro.DataResponse) error {
	ts := p.now().UnixMilli()
	for _, s := range samples {
		payload, err := json.Marshal(SampleMessage{
			RunID:      p.runID,
			Count:      s.Count,
			XRate:      s.XRate,
			YRate:      s.YRate,
			ZRate:      s.ZRate,
			ReceivedAt: ts,
		})
		if err != nil {
			return fmt.Errorf("marshal sample: %w", err)
		}
		if err := p.pub.Publish(ctx, p.channel, payload).Err(); err != nil {
			return fmt.Errorf("publish sample %d: %w", s.Count, err)
		}
	}
	p.log.Debug("samples published", zap.String("channel", p.channel), zap.Int("samples", len(samples)))
	return nil
}
