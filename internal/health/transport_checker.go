package health

import (
	"context"
	"time"

	"github.com/taoyao-code/ratesensor/internal/transport"
)

// TransportChecker 字节通道检查：能查询到待读字节数即视为健康
type TransportChecker struct {
	port transport.Port
}

func NewTransportChecker(port transport.Port) *TransportChecker {
	return &TransportChecker{port: port}
}

func (c *TransportChecker) Name() string {
	return "transport"
}

func (c *TransportChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	n, err := c.port.Available()
	if err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: time.Since(start),
		}
	}
	return CheckResult{
		Status:  StatusHealthy,
		Message: "ok",
		Details: map[string]interface{}{"available_bytes": n},
		Latency: time.Since(start),
	}
}

// LoopChecker 主循环检查（模拟器周期循环）
type LoopChecker struct {
	name    string
	running func() bool
}

func NewLoopChecker(name string, running func() bool) *LoopChecker {
	return &LoopChecker{name: name, running: running}
}

func (c *LoopChecker) Name() string {
	return c.name
}

func (c *LoopChecker) Check(ctx context.Context) CheckResult {
	if c.running() {
		return CheckResult{Status: StatusHealthy, Message: "running"}
	}
	return CheckResult{Status: StatusUnhealthy, Message: "stopped"}
}
