package gyro

// 帧分隔符（三种帧共用）
const Delimiter byte = 0x0D

// 寄存器（命令/响应的操作码）
const (
	RegVersionGet byte = 0x72
	RegModeSet    byte = 0x03
	RegModeGet    byte = 0x04
	RegDataGet    byte = 0x80
)

// 工作模式（mode-set 参数）
const (
	ModeAuto   byte = 0x00
	ModeManual byte = 0x01
	ModeConfig byte = 0x02
)

// 各帧固定长度（含分隔符，紧凑排列无填充）
const (
	CommandFrameLen      = 3
	ResponseFrameLen     = 3
	DataResponseFrameLen = 1 + 2 + 4*3 + 1
)

// RegisterName 返回寄存器名称，未知寄存器返回 "unknown"
func RegisterName(reg byte) string {
	switch reg {
	case RegVersionGet:
		return "version_get"
	case RegModeSet:
		return "mode_set"
	case RegModeGet:
		return "mode_get"
	case RegDataGet:
		return "data_get"
	default:
		return "unknown"
	}
}

// ModeName 返回模式名称
func ModeName(mode byte) string {
	switch mode {
	case ModeAuto:
		return "auto"
	case ModeManual:
		return "manual"
	case ModeConfig:
		return "config"
	default:
		return "unknown"
	}
}

// ParseMode 解析模式名称（auto|manual|config）
func ParseMode(s string) (byte, bool) {
	switch s {
	case "auto":
		return ModeAuto, true
	case "manual":
		return ModeManual, true
	case "config":
		return ModeConfig, true
	}
	return 0, false
}
