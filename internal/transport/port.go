// Package transport 提供链路层字节通道：串口、TCP 透传与进程内管道。
// 通道只负责收发原始字节，分帧由 protocol/gyro 完成。
package transport

import "errors"

var (
	ErrClosed       = errors.New("transport: closed")
	ErrShortWrite   = errors.New("transport: short write")
	ErrWriteTimeout = errors.New("transport: write timeout")
	ErrUnsupported  = errors.New("transport: unsupported on this platform")
	ErrUnknownKind  = errors.New("transport: unknown kind")
	ErrUnknownSpeed = errors.New("transport: unsupported baud rate")
)

// Port 核心逻辑消费的字节通道
type Port interface {
	// Send 写出全部字节，失败即返回错误
	Send(p []byte) error
	// Receive 读取至多 size 字节；无数据时最多等待读超时，超时返回空切片且无错误
	Receive(size int) ([]byte, error)
	// Available 当前已到达、尚未读取的字节数
	Available() (int, error)
	Close() error
}

// Flusher 可选能力：丢弃输入缓冲中尚未读取的字节
type Flusher interface {
	Flush() error
}
