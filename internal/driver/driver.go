package driver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
	"github.com/taoyao-code/ratesensor/internal/transport"
)

// Driver 角速率传感器上位机驱动
// 每个操作都是“发送命令 + 立即取应答”，两步之间不得插入其他请求。
type Driver struct {
	port transport.Port
	ex   *Exchange
	log  *zap.Logger
}

// New 创建驱动
func New(port transport.Port, opts ...Option) *Driver {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver{port: port, ex: NewExchange(port, opts...), log: o.logger}
}

// Exchange 返回底层交换器
func (d *Driver) Exchange() *Exchange { return d.ex }

// Init 清空通道输入缓冲（若通道支持）
func (d *Driver) Init() error {
	if f, ok := d.port.(transport.Flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("%w: flush: %w", ErrTransportFailure, err)
		}
	}
	return nil
}

// Shutdown 关闭通道
func (d *Driver) Shutdown() error {
	return d.port.Close()
}

func (d *Driver) request(reg, arg byte) (gyro.Response, error) {
	if err := d.ex.SendCommand(reg, arg); err != nil {
		return gyro.Response{}, err
	}
	return d.ex.ReceiveResponse(reg)
}

// IsAlive 通过读取版本号判断设备是否响应（版本非零即存活）
func (d *Driver) IsAlive() (bool, error) {
	v, err := d.GetVersion()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// GetVersion 读取设备版本号
func (d *Driver) GetVersion() (byte, error) {
	r, err := d.request(gyro.RegVersionGet, 0)
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// SetMode 切换工作模式，返回设备回显的模式
func (d *Driver) SetMode(mode byte) (byte, error) {
	r, err := d.request(gyro.RegModeSet, mode)
	if err != nil {
		return 0, err
	}
	d.log.Info("mode set", zap.String("requested", gyro.ModeName(mode)), zap.String("echoed", gyro.ModeName(r.Value)))
	return r.Value, nil
}

// GetMode 读取当前工作模式
func (d *Driver) GetMode() (byte, error) {
	r, err := d.request(gyro.RegModeGet, 0)
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// GetRates 请求一次角速率数据
func (d *Driver) GetRates() ([]gyro.DataResponse, error) {
	if err := d.ex.SendCommand(gyro.RegDataGet, 0); err != nil {
		return nil, err
	}
	return d.ex.ReceiveDataResponse()
}

// Drain 收取 auto 模式下设备主动上报的数据帧
func (d *Driver) Drain() ([]gyro.DataResponse, error) {
	return d.ex.ReceiveDataResponse()
}
