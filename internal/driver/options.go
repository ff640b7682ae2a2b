package driver

import (
	"go.uber.org/zap"

	"github.com/taoyao-code/ratesensor/internal/metrics"
)

// DefaultRetryLimit 接收轮询的默认重试上限
const DefaultRetryLimit = 5

type options struct {
	retryLimit int
	delim      byte
	logger     *zap.Logger
	metrics    *metrics.AppMetrics
}

// Option 驱动可选配置
type Option func(*options)

// WithRetryLimit 设置接收轮询次数上限（<=0 时使用默认值）
func WithRetryLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.retryLimit = n
		}
	}
}

// WithDelimiter 覆盖帧分隔符（两端必须一致）
func WithDelimiter(d byte) Option {
	return func(o *options) { o.delim = d }
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics 接入业务指标
func WithMetrics(m *metrics.AppMetrics) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}
