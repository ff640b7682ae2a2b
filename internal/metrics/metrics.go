package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 链路业务指标（驱动与模拟器共用）
type AppMetrics struct {
	FramesEncoded    *prometheus.CounterVec // labels: shape
	FramesDecoded    *prometheus.CounterVec // labels: shape
	DecodeShort      *prometheus.CounterVec // labels: shape（不足一帧）
	BytesDiscarded   *prometheus.CounterVec // labels: shape（解码后整体清空丢弃的字节）
	ExchangeAttempts prometheus.Counter
	ExchangeFailures *prometheus.CounterVec // labels: kind
	SimCycles        prometheus.Counter
	CommandsTotal    *prometheus.CounterVec // labels: reg
	UnknownCommands  prometheus.Counter
	CommandsDeferred prometheus.Counter
	ModeGauge        prometheus.Gauge
	SampleCounter    prometheus.Gauge
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg prometheus.Registerer) *AppMetrics {
	m := &AppMetrics{
		FramesEncoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratesensor_frames_encoded_total",
			Help: "Frames encoded and handed to the transport.",
		}, []string{"shape"}),
		FramesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratesensor_frames_decoded_total",
			Help: "Frames decoded from the receive buffer.",
		}, []string{"shape"}),
		DecodeShort: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratesensor_decode_short_total",
			Help: "Decode attempts on a buffer shorter than one frame.",
		}, []string{"shape"}),
		BytesDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratesensor_bytes_discarded_total",
			Help: "Buffered bytes dropped by a decode pass without forming a frame.",
		}, []string{"shape"}),
		ExchangeAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratesensor_exchange_attempts_total",
			Help: "Receive poll attempts made by the driver.",
		}),
		ExchangeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratesensor_exchange_failures_total",
			Help: "Driver exchanges that failed, by kind.",
		}, []string{"kind"}),
		SimCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratesensor_sim_cycles_total",
			Help: "Simulator cycles executed.",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratesensor_sim_commands_total",
			Help: "Commands dispatched by the simulator, by register.",
		}, []string{"reg"}),
		UnknownCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratesensor_sim_unknown_commands_total",
			Help: "Commands with an unrecognized register.",
		}),
		CommandsDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratesensor_sim_commands_deferred_total",
			Help: "Commands left queued by the input rate limiter.",
		}),
		ModeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ratesensor_sim_mode",
			Help: "Current simulator mode register value.",
		}),
		SampleCounter: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ratesensor_sim_sample_counter",
			Help: "Current simulator sample counter.",
		}),
	}
	reg.MustRegister(m.FramesEncoded, m.FramesDecoded, m.DecodeShort, m.BytesDiscarded,
		m.ExchangeAttempts, m.ExchangeFailures, m.SimCycles, m.CommandsTotal,
		m.UnknownCommands, m.CommandsDeferred, m.ModeGauge, m.SampleCounter)
	return m
}

// Discard 返回注册到独立 Registry 的指标，供未接入监控的组件使用
func Discard() *AppMetrics {
	return NewAppMetrics(prometheus.NewRegistry())
}
