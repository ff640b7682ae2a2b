//go:build !linux

package transport

import (
	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
)

// SerialPort 非 Linux 平台占位
type SerialPort struct{}

// OpenSerial 非 Linux 平台不支持串口
func OpenSerial(cfg cfgpkg.SerialConfig) (*SerialPort, error) {
	return nil, ErrUnsupported
}

func (p *SerialPort) Send([]byte) error           { return ErrUnsupported }
func (p *SerialPort) Receive(int) ([]byte, error) { return nil, ErrUnsupported }
func (p *SerialPort) Available() (int, error)     { return 0, ErrUnsupported }
func (p *SerialPort) Flush() error                { return ErrUnsupported }
func (p *SerialPort) Close() error                { return nil }
func (p *SerialPort) Device() string              { return "" }
