package transport

import (
	"io"
	"sync/atomic"
	"time"
)

// PipeEnd 进程内全双工管道的一端（测试与自测模式使用）
type PipeEnd struct {
	in          *inbox
	peer        *inbox
	readTimeout time.Duration
	closed      atomic.Bool
}

// NewPipe 创建一对互联的管道端点；readTimeout 为 Receive 在无数据时的等待上限
func NewPipe(readTimeout time.Duration) (*PipeEnd, *PipeEnd) {
	a, b := newInbox(), newInbox()
	return &PipeEnd{in: a, peer: b, readTimeout: readTimeout},
		&PipeEnd{in: b, peer: a, readTimeout: readTimeout}
}

func (p *PipeEnd) Send(b []byte) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if p.peer.isClosed() {
		return io.ErrClosedPipe
	}
	p.peer.put(b)
	return nil
}

func (p *PipeEnd) Receive(size int) ([]byte, error) {
	if p.closed.Load() {
		return nil, ErrClosed
	}
	return p.in.take(size, p.readTimeout)
}

func (p *PipeEnd) Available() (int, error) {
	if p.closed.Load() {
		return 0, ErrClosed
	}
	return p.in.len(), nil
}

// Flush 丢弃尚未读取的输入
func (p *PipeEnd) Flush() error {
	p.in.reset()
	return nil
}

// Close 关闭本端；对端读尽剩余字节后得到 io.EOF
func (p *PipeEnd) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	p.in.close(ErrClosed)
	p.peer.close(io.EOF)
	return nil
}
