package gyro

import "fmt"

// Command 上位机 -> 设备 的命令帧
// 布局：reg[1] | arg[1] | delim[1]
type Command struct {
	Register byte
	Argument byte
}

// Response 设备 -> 上位机 的命令应答帧
// 布局：reg[1] | value[1] | delim[1]
type Response struct {
	Register byte
	Value    byte
}

// DataResponse 设备 -> 上位机 的角速率数据帧（请求应答或 auto 模式主动上报）
// 布局：reg[1] | countLE[2] | xLE[4] | yLE[4] | zLE[4] | delim[1]
type DataResponse struct {
	Register byte
	Count    uint16
	XRate    float32
	YRate    float32
	ZRate    float32
}

func (c Command) String() string {
	return fmt.Sprintf("command: reg=0x%02x(%s) arg=0x%02x", c.Register, RegisterName(c.Register), c.Argument)
}

func (r Response) String() string {
	return fmt.Sprintf("response: reg=0x%02x(%s) value=0x%02x", r.Register, RegisterName(r.Register), r.Value)
}

func (d DataResponse) String() string {
	return fmt.Sprintf("data: reg=0x%02x count=%d x=%.6f y=%.6f z=%.6f", d.Register, d.Count, d.XRate, d.YRate, d.ZRate)
}
