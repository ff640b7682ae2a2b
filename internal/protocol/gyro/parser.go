package gyro

import (
	"bytes"
	"errors"
)

// ErrInsufficientData 缓冲区不足一帧长度，调用方应等待更多字节后重试
var ErrInsufficientData = errors.New("insufficient data")

// Coder 固定长度、分隔符结尾帧的编解码器（按消息形状参数化）
// 编解码器本身不保留任何缓冲，半包状态由调用方持有。
type Coder[T any] struct {
	name     string
	delim    byte
	frameLen int
	encode   func(T, byte) []byte
	decode   func([]byte) T
}

// NewCoder 创建自定义形状的编解码器；frameLen 必须与 encode 输出长度一致
func NewCoder[T any](name string, delim byte, frameLen int, encode func(T, byte) []byte, decode func([]byte) T) *Coder[T] {
	return &Coder[T]{name: name, delim: delim, frameLen: frameLen, encode: encode, decode: decode}
}

// NewCommandCoder 命令帧编解码器
func NewCommandCoder(delim byte) *Coder[Command] {
	return NewCoder("command", delim, CommandFrameLen, encodeCommand, decodeCommand)
}

// NewResponseCoder 应答帧编解码器
func NewResponseCoder(delim byte) *Coder[Response] {
	return NewCoder("response", delim, ResponseFrameLen, encodeResponse, decodeResponse)
}

// NewDataResponseCoder 数据帧编解码器
func NewDataResponseCoder(delim byte) *Coder[DataResponse] {
	return NewCoder("data_response", delim, DataResponseFrameLen, encodeDataResponse, decodeDataResponse)
}

// Name 形状名称（用作日志/指标标签）
func (c *Coder[T]) Name() string { return c.name }

// FrameLength 帧固定长度
func (c *Coder[T]) FrameLength() int { return c.frameLen }

// Delimiter 帧分隔符
func (c *Coder[T]) Delimiter() byte { return c.delim }

// Frame 将消息编码为线上字节序列，以分隔符结尾
func (c *Coder[T]) Frame(msg T) []byte {
	return c.encode(msg, c.delim)
}

// Deframe 从累积缓冲中解出所有完整帧。
//
// 逐字节累积到子窗口；仅当当前字节等于分隔符且子窗口恰好为帧长时才成帧，
// 成帧后子窗口清空。扫描结束后整个 buf 被清空，尾部未成帧的字节一并丢弃。
// 子窗口只在成帧时复位：流一旦错位，本次调用中后续字节都不会再成帧。
// buf 不足一帧时返回 ErrInsufficientData 且不修改 buf。
func (c *Coder[T]) Deframe(buf *bytes.Buffer) ([]T, error) {
	if buf.Len() < c.frameLen {
		return nil, ErrInsufficientData
	}

	var out []T
	window := make([]byte, 0, c.frameLen)
	for _, b := range buf.Bytes() {
		window = append(window, b)
		if b == c.delim && len(window) == c.frameLen {
			out = append(out, c.decode(window))
			window = window[:0]
		}
	}

	buf.Reset()
	return out, nil
}
