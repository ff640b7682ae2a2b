package transport

import (
	"sync"
	"time"
)

// inbox 单读者的接收字节队列（TCP 读协程与管道对端写入，Receive 读取）
type inbox struct {
	mu     sync.Mutex
	buf    []byte
	closed bool
	err    error
	notify chan struct{}
}

func newInbox() *inbox {
	return &inbox{notify: make(chan struct{}, 1)}
}

func (in *inbox) wake() {
	select {
	case in.notify <- struct{}{}:
	default:
	}
}

func (in *inbox) put(p []byte) {
	in.mu.Lock()
	in.buf = append(in.buf, p...)
	in.mu.Unlock()
	in.wake()
}

func (in *inbox) len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.buf)
}

func (in *inbox) reset() {
	in.mu.Lock()
	in.buf = nil
	in.mu.Unlock()
}

// close 标记结束；已缓冲的字节仍可读出，读尽后返回 err
func (in *inbox) close(err error) {
	in.mu.Lock()
	if !in.closed {
		in.closed = true
		in.err = err
	}
	in.mu.Unlock()
	in.wake()
}

func (in *inbox) isClosed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.closed
}

// take 取出至多 size 字节，队列为空时最多等待 timeout
func (in *inbox) take(size int, timeout time.Duration) ([]byte, error) {
	if size <= 0 {
		return []byte{}, nil
	}
	deadline := time.Now().Add(timeout)
	for {
		in.mu.Lock()
		if n := len(in.buf); n > 0 {
			if n > size {
				n = size
			}
			out := make([]byte, n)
			copy(out, in.buf)
			in.buf = in.buf[n:]
			if len(in.buf) == 0 {
				in.buf = nil
			}
			in.mu.Unlock()
			return out, nil
		}
		if in.closed {
			err := in.err
			in.mu.Unlock()
			if err == nil {
				err = ErrClosed
			}
			return nil, err
		}
		in.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return []byte{}, nil
		}
		timer := time.NewTimer(remaining)
		select {
		case <-in.notify:
		case <-timer.C:
		}
		timer.Stop()
	}
}
