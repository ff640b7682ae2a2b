package simulator

import (
	"sync/atomic"

	"golang.org/x/time/rate"
)

// CommandLimiter 基于 Token Bucket 的命令分发限速器
// 超出预算的命令留在队列中，下个周期继续按到达顺序分发。
type CommandLimiter struct {
	limiter       *rate.Limiter
	ratePerSec    int
	burst         int
	allowedCount  atomic.Int64
	deferredCount atomic.Int64
}

// NewCommandLimiter 创建限速器；ratePerSec<=0 表示不限速，返回 nil
func NewCommandLimiter(ratePerSec int, burst int) *CommandLimiter {
	if ratePerSec <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = ratePerSec
	}
	return &CommandLimiter{
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), burst),
		ratePerSec: ratePerSec,
		burst:      burst,
	}
}

// Allow 是否允许分发下一条命令（非阻塞）；nil 限速器始终允许
func (l *CommandLimiter) Allow() bool {
	if l == nil {
		return true
	}
	if l.limiter.Allow() {
		l.allowedCount.Add(1)
		return true
	}
	l.deferredCount.Add(1)
	return false
}

// LimiterStats 限速器统计信息
type LimiterStats struct {
	RatePerSecond int   `json:"rate_per_second"`
	Burst         int   `json:"burst"`
	AllowedTotal  int64 `json:"allowed_total"`
	DeferredTotal int64 `json:"deferred_total"`
}

// Stats 获取统计信息
func (l *CommandLimiter) Stats() LimiterStats {
	if l == nil {
		return LimiterStats{}
	}
	return LimiterStats{
		RatePerSecond: l.ratePerSec,
		Burst:         l.burst,
		AllowedTotal:  l.allowedCount.Load(),
		DeferredTotal: l.deferredCount.Load(),
	}
}
