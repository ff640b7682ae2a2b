//go:build linux

package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
)

var baudRates = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
	460800: unix.B460800,
	921600: unix.B921600,
}

// SerialPort 原始模式（8N1、无流控）串口
type SerialPort struct {
	mu         sync.Mutex
	fd         int
	device     string
	cfg        cfgpkg.SerialConfig
	closed     bool
	oldTermios *unix.Termios
}

// OpenSerial 打开并配置串口，打开后清空输入缓冲
func OpenSerial(cfg cfgpkg.SerialConfig) (*SerialPort, error) {
	if cfg.Device == "" {
		return nil, errors.New("transport: serial device path required")
	}
	speed, ok := baudRates[cfg.BaudRate]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSpeed, cfg.BaudRate)
	}

	fd, err := unix.Open(cfg.Device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Device, err)
	}

	oldTermios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: get termios: %w", err)
	}

	t := *oldTermios
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON | unix.IXOFF | unix.IXANY
	t.Oflag &^= unix.OPOST
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.PARODD | unix.CSTOPB | unix.CRTSCTS | unix.CBAUD
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL | speed
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Ispeed = speed
	t.Ospeed = speed
	// 读超时由 poll 控制
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &t); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("transport: set termios: %w", err)
	}

	p := &SerialPort{fd: fd, device: cfg.Device, cfg: cfg, oldTermios: oldTermios}
	if err := p.Flush(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Device 返回设备路径
func (p *SerialPort) Device() string { return p.device }

func (p *SerialPort) handle() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return -1, ErrClosed
	}
	return p.fd, nil
}

// Send 写出全部字节；输出缓冲满时等待可写，至多 WriteTimeout（缺省 5s）
func (p *SerialPort) Send(b []byte) error {
	fd, err := p.handle()
	if err != nil {
		return err
	}
	timeout := p.cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	for len(b) > 0 {
		n, err := unix.Write(fd, b)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if !errors.Is(err, unix.EAGAIN) {
				return fmt.Errorf("transport: write: %w", err)
			}
			ready, err := p.wait(fd, unix.POLLOUT, timeout)
			if err != nil {
				return err
			}
			if !ready {
				return fmt.Errorf("%w: %s after %s", ErrWriteTimeout, p.device, timeout)
			}
			continue
		}
		if n == 0 {
			return ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}

// wait poll 等待 events 就绪；超时返回 false，被信号打断时返回 true 由调用方重试
func (p *SerialPort) wait(fd int, events int16, timeout time.Duration) (bool, error) {
	pfd := []unix.PollFd{{Fd: int32(fd), Events: events}}
	n, err := unix.Poll(pfd, int(timeout/time.Millisecond))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return true, nil
		}
		return false, fmt.Errorf("transport: poll: %w", err)
	}
	if n == 0 {
		return false, nil
	}
	if pfd[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return false, fmt.Errorf("transport: %s hung up", p.device)
	}
	return true, nil
}

// Receive 等待可读（至多 ReadTimeout），随后读取至多 size 字节
func (p *SerialPort) Receive(size int) ([]byte, error) {
	fd, err := p.handle()
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return []byte{}, nil
	}

	ready, err := p.wait(fd, unix.POLLIN, p.cfg.ReadTimeout)
	if err != nil || !ready {
		return []byte{}, err
	}

	buf := make([]byte, size)
	n, err := unix.Read(fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return []byte{}, nil
		}
		return nil, fmt.Errorf("transport: read: %w", err)
	}
	return buf[:n], nil
}

// Available 查询输入队列中的字节数（FIONREAD）
func (p *SerialPort) Available() (int, error) {
	fd, err := p.handle()
	if err != nil {
		return 0, err
	}
	n, err := unix.IoctlGetInt(fd, unix.TIOCINQ)
	if err != nil {
		return 0, fmt.Errorf("transport: available bytes: %w", err)
	}
	return n, nil
}

// Flush 丢弃输入缓冲
func (p *SerialPort) Flush() error {
	fd, err := p.handle()
	if err != nil {
		return err
	}
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIFLUSH); err != nil {
		return fmt.Errorf("transport: flush input: %w", err)
	}
	return nil
}

// Close 恢复原始 termios 并关闭设备
func (p *SerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.oldTermios != nil {
		_ = unix.IoctlSetTermios(p.fd, unix.TCSETS, p.oldTermios)
	}
	return unix.Close(p.fd)
}
