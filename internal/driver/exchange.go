package driver

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/ratesensor/internal/metrics"
	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
	"github.com/taoyao-code/ratesensor/internal/transport"
)

// Exchange 命令/应答同步交换（上位机侧）。
//
// 线上没有消息 ID，交换只按期望的帧形状解码并取第一帧匹配结果，
// 因此同一时刻只允许一条在途请求：上一条命令的应答未取走前再次发送会返回
// ErrRequestOutstanding。接收缓冲跨调用保留，用于续接半包；每次成功解码后
// 整体清空（含尾部未成帧字节）。
type Exchange struct {
	port       transport.Port
	cmd        *gyro.Coder[gyro.Command]
	rsp        *gyro.Coder[gyro.Response]
	data       *gyro.Coder[gyro.DataResponse]
	rx         bytes.Buffer
	retryLimit int
	pending    bool
	pendingReg byte
	log        *zap.Logger
	m          *metrics.AppMetrics
}

// NewExchange 创建交换器
func NewExchange(port transport.Port, opts ...Option) *Exchange {
	o := options{retryLimit: DefaultRetryLimit, delim: gyro.Delimiter, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = metrics.Discard()
	}
	return &Exchange{
		port:       port,
		cmd:        gyro.NewCommandCoder(o.delim),
		rsp:        gyro.NewResponseCoder(o.delim),
		data:       gyro.NewDataResponseCoder(o.delim),
		retryLimit: o.retryLimit,
		log:        o.logger,
		m:          o.metrics,
	}
}

// RetryLimit 接收轮询次数上限
func (e *Exchange) RetryLimit() int { return e.retryLimit }

// Buffered 接收缓冲中尚未解码的字节数
func (e *Exchange) Buffered() int { return e.rx.Len() }

// Outstanding 是否有命令在等待应答
func (e *Exchange) Outstanding() bool { return e.pending }

// SendCommand 编码并立即发送一条命令，不等待应答
func (e *Exchange) SendCommand(reg, arg byte) error {
	if e.pending {
		return fmt.Errorf("%w: 0x%02x awaiting reply, refused 0x%02x", ErrRequestOutstanding, e.pendingReg, reg)
	}
	frame := e.cmd.Frame(gyro.Command{Register: reg, Argument: arg})
	if err := e.port.Send(frame); err != nil {
		e.m.ExchangeFailures.WithLabelValues("transport").Inc()
		return fmt.Errorf("%w: send: %w", ErrTransportFailure, err)
	}
	e.m.FramesEncoded.WithLabelValues(e.cmd.Name()).Inc()
	e.pending, e.pendingReg = true, reg
	e.log.Debug("command sent",
		zap.String("reg", gyro.RegisterName(reg)),
		zap.String("frame", hex.EncodeToString(frame)))
	return nil
}

// ReceiveResponse 轮询应答帧，返回第一帧寄存器等于 expected 的应答
func (e *Exchange) ReceiveResponse(expected byte) (gyro.Response, error) {
	defer e.settle()

	rsps, attempts, err := poll(e, e.rsp)
	if err != nil {
		return gyro.Response{}, err
	}
	if len(rsps) == 0 {
		e.m.ExchangeFailures.WithLabelValues("no_response").Inc()
		return gyro.Response{}, fmt.Errorf("%w: reg 0x%02x after %d attempts", ErrNoResponse, expected, attempts)
	}
	for _, r := range rsps {
		if r.Register == expected {
			return r, nil
		}
	}
	e.m.ExchangeFailures.WithLabelValues("register_mismatch").Inc()
	e.log.Warn("response register mismatch",
		zap.String("expected", gyro.RegisterName(expected)),
		zap.Int("responses", len(rsps)),
		zap.Uint8("first_reg", rsps[0].Register))
	return gyro.Response{}, fmt.Errorf("%w: want 0x%02x, first got 0x%02x", ErrRegisterMismatch, expected, rsps[0].Register)
}

// ReceiveDataResponse 轮询数据帧；请求应答与 auto 模式主动上报都走这里
func (e *Exchange) ReceiveDataResponse() ([]gyro.DataResponse, error) {
	defer e.settle()

	frames, attempts, err := poll(e, e.data)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		e.m.ExchangeFailures.WithLabelValues("no_data_response").Inc()
		return nil, fmt.Errorf("%w: after %d attempts", ErrNoDataResponse, attempts)
	}
	return frames, nil
}

// settle 结束一次交换（无论成败），释放在途请求
func (e *Exchange) settle() {
	e.pending = false
	e.pendingReg = 0
}

// poll 至多 retryLimit 次：取 max(可用字节, 帧长) 字节追加到接收缓冲并解码，
// 解出至少一帧即停止。不足一帧时保留缓冲等待下一次。
func poll[T any](e *Exchange, c *gyro.Coder[T]) ([]T, int, error) {
	var out []T
	attempts := 0
	for len(out) == 0 && attempts < e.retryLimit {
		attempts++
		e.m.ExchangeAttempts.Inc()

		avail, err := e.port.Available()
		if err != nil {
			e.m.ExchangeFailures.WithLabelValues("transport").Inc()
			return nil, attempts, fmt.Errorf("%w: available: %w", ErrTransportFailure, err)
		}
		// 可能阻塞到读超时
		chunk, err := e.port.Receive(max(avail, c.FrameLength()))
		if err != nil {
			e.m.ExchangeFailures.WithLabelValues("transport").Inc()
			return nil, attempts, fmt.Errorf("%w: receive: %w", ErrTransportFailure, err)
		}
		e.rx.Write(chunk)

		buffered := e.rx.Len()
		frames, err := c.Deframe(&e.rx)
		if errors.Is(err, gyro.ErrInsufficientData) {
			e.m.DecodeShort.WithLabelValues(c.Name()).Inc()
			continue
		}
		if err != nil {
			return nil, attempts, err
		}
		if dropped := buffered - len(frames)*c.FrameLength(); dropped > 0 {
			e.m.BytesDiscarded.WithLabelValues(c.Name()).Add(float64(dropped))
			e.log.Debug("receive buffer cleared with undecoded bytes",
				zap.String("shape", c.Name()),
				zap.Int("dropped", dropped))
		}
		e.m.FramesDecoded.WithLabelValues(c.Name()).Add(float64(len(frames)))
		out = frames
	}
	return out, attempts, nil
}
