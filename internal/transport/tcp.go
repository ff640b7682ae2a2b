package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
)

// TCPPort 以 TCP 连接承载串口字节流（模拟器监听，驱动拨号）
// 读协程把到达的字节放入 inbox，Available/Receive 只访问 inbox。
type TCPPort struct {
	c      net.Conn
	cfg    cfgpkg.TCPConfig
	in     *inbox
	closed int32
	doneC  chan struct{}
}

func newTCPPort(c net.Conn, cfg cfgpkg.TCPConfig) *TCPPort {
	p := &TCPPort{c: c, cfg: cfg, in: newInbox(), doneC: make(chan struct{})}
	go p.readLoop()
	return p
}

// DialTCP 连接到模拟器；对端未就绪时在 DialTimeout 内重试
func DialTCP(ctx context.Context, cfg cfgpkg.TCPConfig) (*TCPPort, error) {
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d net.Dialer
	for {
		c, err := d.DialContext(ctx, "tcp", cfg.Addr)
		if err == nil {
			return newTCPPort(c, cfg), nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("transport: dial %s: %w", cfg.Addr, err)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// ListenTCP 监听并接受第一个对端连接后关闭监听（链路只有一个对端）
func ListenTCP(ctx context.Context, cfg cfgpkg.TCPConfig) (*TCPPort, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", cfg.Addr, err)
	}
	return AcceptTCP(ctx, ln, cfg)
}

// AcceptTCP 在已有监听上接受一个连接，返回前关闭监听
func AcceptTCP(ctx context.Context, ln net.Listener, cfg cfgpkg.TCPConfig) (*TCPPort, error) {
	defer ln.Close()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	c, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("transport: accept: %w", err)
	}
	return newTCPPort(c, cfg), nil
}

// RemoteAddr 返回远端地址
func (p *TCPPort) RemoteAddr() net.Addr { return p.c.RemoteAddr() }

func (p *TCPPort) Send(b []byte) error {
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrClosed
	}
	if p.cfg.WriteTimeout > 0 {
		_ = p.c.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
	}
	n, err := p.c.Write(b)
	if err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	if n != len(b) {
		return ErrShortWrite
	}
	return nil
}

func (p *TCPPort) Receive(size int) ([]byte, error) {
	if atomic.LoadInt32(&p.closed) == 1 {
		return nil, ErrClosed
	}
	return p.in.take(size, p.cfg.ReadTimeout)
}

func (p *TCPPort) Available() (int, error) {
	if atomic.LoadInt32(&p.closed) == 1 {
		return 0, ErrClosed
	}
	return p.in.len(), nil
}

// Flush 丢弃已到达未读取的字节
func (p *TCPPort) Flush() error {
	p.in.reset()
	return nil
}

// Close 关闭连接并等待读协程退出
func (p *TCPPort) Close() error {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return nil
	}
	err := p.c.Close()
	<-p.doneC
	return err
}

// Done 返回读协程结束通知通道（对端断开或本端关闭）
func (p *TCPPort) Done() <-chan struct{} { return p.doneC }

func (p *TCPPort) readLoop() {
	defer close(p.doneC)
	buf := make([]byte, 4096)
	for {
		n, err := p.c.Read(buf)
		if n > 0 {
			p.in.put(buf[:n])
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				err = ErrClosed
			}
			p.in.close(err)
			return
		}
	}
}
