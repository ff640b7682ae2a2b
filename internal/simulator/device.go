package simulator

import (
	"math"
	"time"

	"github.com/taoyao-code/ratesensor/internal/protocol/gyro"
)

// 真值信号参数：三轴同频正弦，相位错开
const (
	truthAmplitude = 0.75
	truthOmega     = 0.5 * 2 * math.Pi // rad/s
	truthPhaseY    = 0.66 * math.Pi
	truthPhaseZ    = 1.22 * math.Pi
)

// DefaultVersion 设备版本号应答值
const DefaultVersion byte = 0x23

// Truth 模拟器的三轴角速率真值
type Truth struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Device 设备状态：只由命令分发与 auto 模式节拍修改，不持久化
type Device struct {
	Mode    byte
	Counter uint16
	Truth   Truth
	Version byte
}

// NewDevice 创建初始状态（manual 模式，计数 0）
func NewDevice(version byte) Device {
	return Device{Mode: gyro.ModeManual, Version: version}
}

// UpdateTruth 按样本计数推算的经过时间重算真值，与模式无关
func (d *Device) UpdateTruth(period time.Duration) {
	t := float64(d.Counter) * period.Seconds()
	d.Truth = Truth{
		X: float32(truthAmplitude * math.Sin(t*truthOmega)),
		Y: float32(truthAmplitude * math.Sin(t*truthOmega+truthPhaseY)),
		Z: float32(truthAmplitude * math.Sin(t*truthOmega+truthPhaseZ)),
	}
}

// SetMode 无条件写入模式；返回该值是否为已知模式
func (d *Device) SetMode(mode byte) bool {
	d.Mode = mode
	return mode == gyro.ModeAuto || mode == gyro.ModeManual || mode == gyro.ModeConfig
}

// NextSample 以当前真值与计数生成数据帧，并推进计数（uint16 自然回绕）
func (d *Device) NextSample() gyro.DataResponse {
	s := gyro.DataResponse{
		Register: gyro.RegDataGet,
		Count:    d.Counter,
		XRate:    d.Truth.X,
		YRate:    d.Truth.Y,
		ZRate:    d.Truth.Z,
	}
	d.Counter++
	return s
}
