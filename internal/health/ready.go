package health

import "sync/atomic"

// Readiness 进程就绪标志：通道已打开且主循环在运行
type Readiness struct {
	portReady atomic.Bool
	loopReady atomic.Bool
}

func New() *Readiness { return &Readiness{} }

func (r *Readiness) SetPortReady(v bool) { r.portReady.Store(v) }
func (r *Readiness) SetLoopReady(v bool) { r.loopReady.Store(v) }

// Ready 两项均为 true
func (r *Readiness) Ready() bool {
	return r.portReady.Load() && r.loopReady.Load()
}
