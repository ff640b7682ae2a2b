package simulator

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
	"github.com/taoyao-code/ratesensor/internal/metrics"
	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
	"github.com/taoyao-code/ratesensor/internal/transport"
)

// DefaultCyclePeriod 默认周期
const DefaultCyclePeriod = 100 * time.Millisecond

// Sim 传感器线上行为模拟器（设备侧协议分发）
//
// 每个周期依次：重算真值 -> 模式节拍 -> 收字节解命令 -> 按到达顺序分发 -> 发送应答。
// 周期之间固定休眠，不扣除处理耗时，实际周期会随负载漂移。
// 任何输入错误都只记日志，循环不会因此退出。
type Sim struct {
	port   transport.Port
	period time.Duration
	dev    Device

	cmdCoder  *gyro.Coder[gyro.Command]
	rspCoder  *gyro.Coder[gyro.Response]
	dataCoder *gyro.Coder[gyro.DataResponse]

	rx            bytes.Buffer
	commands      []gyro.Command
	responses     []gyro.Response
	dataResponses []gyro.DataResponse

	limiter *CommandLimiter
	log     *zap.Logger
	m       *metrics.AppMetrics

	cycles  uint64
	running atomic.Bool
	mu      sync.RWMutex
	snap    Snapshot
}

// Snapshot 设备状态快照（供状态接口读取）
type Snapshot struct {
	Mode            byte         `json:"mode"`
	ModeName        string       `json:"mode_name"`
	Counter         uint16       `json:"counter"`
	Truth           Truth        `json:"truth"`
	Cycles          uint64       `json:"cycles"`
	PendingCommands int          `json:"pending_commands"`
	Limiter         LimiterStats `json:"limiter"`
}

// New 创建模拟器；logger/m 可为 nil
func New(port transport.Port, cfg cfgpkg.SimulatorConfig, logger *zap.Logger, m *metrics.AppMetrics) *Sim {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = metrics.Discard()
	}
	period := cfg.CyclePeriod
	if period <= 0 {
		period = DefaultCyclePeriod
	}
	version := DefaultVersion
	if cfg.Version > 0 && cfg.Version <= 0xFF {
		version = byte(cfg.Version)
	}
	s := &Sim{
		port:      port,
		period:    period,
		dev:       NewDevice(version),
		cmdCoder:  gyro.NewCommandCoder(gyro.Delimiter),
		rspCoder:  gyro.NewResponseCoder(gyro.Delimiter),
		dataCoder: gyro.NewDataResponseCoder(gyro.Delimiter),
		limiter:   NewCommandLimiter(cfg.CommandRate, cfg.CommandBurst),
		log:       logger,
		m:         m,
	}
	s.publish()
	return s
}

// Device 返回当前设备状态副本
func (s *Sim) Device() Device { return s.dev }

// Running 循环是否在运行
func (s *Sim) Running() bool { return s.running.Load() }

// Snapshot 返回最近一个周期结束时的状态
func (s *Sim) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Run 按固定周期循环直到 ctx 取消
func (s *Sim) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	s.log.Info("simulator started", zap.Duration("period", s.period), zap.String("mode", gyro.ModeName(s.dev.Mode)))
	timer := time.NewTimer(s.period)
	defer timer.Stop()
	for {
		s.Cycle()

		timer.Reset(s.period)
		select {
		case <-ctx.Done():
			s.log.Info("simulator stopped", zap.Uint64("cycles", s.cycles))
			return nil
		case <-timer.C:
		}
	}
}

// Shutdown 无条件关闭通道
func (s *Sim) Shutdown() error {
	return s.port.Close()
}

// Cycle 执行一个周期
func (s *Sim) Cycle() {
	s.cycles++
	s.m.SimCycles.Inc()

	s.dev.UpdateTruth(s.period)
	s.processMode()
	s.processInput()
	s.processCommands()
	s.processResponses()
	s.publish()
}

// processMode 模式节拍：auto 模式每周期主动产生一帧数据
func (s *Sim) processMode() {
	switch s.dev.Mode {
	case gyro.ModeAuto:
		s.dataResponses = append(s.dataResponses, s.dev.NextSample())
	case gyro.ModeManual, gyro.ModeConfig:
	default:
		s.log.Debug("unrecognized mode", zap.Uint8("mode", s.dev.Mode))
	}
}

// processInput 非阻塞地收取已到达字节并解出命令（不足一帧时推迟到下个周期）
func (s *Sim) processInput() {
	n, err := s.port.Available()
	if err != nil {
		s.log.Warn("available bytes query failed", zap.Error(err))
		return
	}
	if n < 1 {
		return
	}
	chunk, err := s.port.Receive(n)
	if err != nil {
		s.log.Warn("receive failed", zap.Error(err))
		return
	}
	s.rx.Write(chunk)

	if s.rx.Len() < s.cmdCoder.FrameLength() {
		return
	}
	buffered := s.rx.Len()
	cmds, err := s.cmdCoder.Deframe(&s.rx)
	if err != nil {
		s.m.DecodeShort.WithLabelValues(s.cmdCoder.Name()).Inc()
		return
	}
	if dropped := buffered - len(cmds)*s.cmdCoder.FrameLength(); dropped > 0 {
		s.m.BytesDiscarded.WithLabelValues(s.cmdCoder.Name()).Add(float64(dropped))
		s.log.Warn("command bytes dropped", zap.Int("dropped", dropped))
	}
	s.m.FramesDecoded.WithLabelValues(s.cmdCoder.Name()).Add(float64(len(cmds)))
	for _, c := range cmds {
		s.log.Debug("command received", zap.Stringer("cmd", c))
	}
	s.commands = append(s.commands, cmds...)
}

// processCommands 按到达顺序分发队列中的命令
func (s *Sim) processCommands() {
	for len(s.commands) > 0 {
		if !s.limiter.Allow() {
			s.m.CommandsDeferred.Add(float64(len(s.commands)))
			return
		}
		cmd := s.commands[0]
		s.commands = s.commands[1:]
		s.dispatch(cmd)
	}
	s.commands = nil
}

func (s *Sim) dispatch(cmd gyro.Command) {
	s.m.CommandsTotal.WithLabelValues(gyro.RegisterName(cmd.Register)).Inc()
	switch cmd.Register {
	case gyro.RegDataGet:
		s.dataResponses = append(s.dataResponses, s.dev.NextSample())
	case gyro.RegVersionGet:
		s.responses = append(s.responses, gyro.Response{Register: gyro.RegVersionGet, Value: s.dev.Version})
	case gyro.RegModeSet:
		if !s.dev.SetMode(cmd.Argument) {
			s.log.Warn("mode set to unrecognized value", zap.Uint8("mode", cmd.Argument))
		}
		s.responses = append(s.responses, gyro.Response{Register: gyro.RegModeSet, Value: s.dev.Mode})
	case gyro.RegModeGet:
		s.responses = append(s.responses, gyro.Response{Register: gyro.RegModeGet, Value: s.dev.Mode})
	default:
		// 不应答，仅记录
		s.m.UnknownCommands.Inc()
		s.log.Warn("command not found", zap.String("reg", fmt.Sprintf("0x%02x", cmd.Register)), zap.Uint8("arg", cmd.Argument))
	}
}

// processResponses 先发全部应答帧，再发全部数据帧，各自保持入队顺序
func (s *Sim) processResponses() {
	for _, r := range s.responses {
		s.issue(s.rspCoder.Name(), s.rspCoder.Frame(r))
	}
	s.responses = nil
	for _, d := range s.dataResponses {
		s.issue(s.dataCoder.Name(), s.dataCoder.Frame(d))
	}
	s.dataResponses = nil
}

func (s *Sim) issue(shape string, frame []byte) {
	if err := s.port.Send(frame); err != nil {
		s.log.Warn("send failed", zap.String("shape", shape), zap.Error(err))
		return
	}
	s.m.FramesEncoded.WithLabelValues(shape).Inc()
	s.log.Debug("frame sent", zap.String("shape", shape), zap.String("frame", hex.EncodeToString(frame)))
}

func (s *Sim) publish() {
	s.m.ModeGauge.Set(float64(s.dev.Mode))
	s.m.SampleCounter.Set(float64(s.dev.Counter))

	s.mu.Lock()
	s.snap = Snapshot{
		Mode:            s.dev.Mode,
		ModeName:        gyro.ModeName(s.dev.Mode),
		Counter:         s.dev.Counter,
		Truth:           s.dev.Truth,
		Cycles:          s.cycles,
		PendingCommands: len(s.commands),
		Limiter:         s.limiter.Stats(),
	}
	s.mu.Unlock()
}
