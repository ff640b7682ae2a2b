package driver

import "errors"

var (
	// ErrRegisterMismatch 收到了应答帧，但没有一帧的寄存器与期望一致
	ErrRegisterMismatch = errors.New("driver: register mismatch")
	// ErrNoResponse 重试上限内没有解出任何应答帧
	ErrNoResponse = errors.New("driver: no response")
	// ErrNoDataResponse 重试上限内没有解出任何数据帧
	ErrNoDataResponse = errors.New("driver: no data response")
	// ErrTransportFailure 底层通道收发失败，本次操作终止
	ErrTransportFailure = errors.New("driver: transport failure")
	// ErrRequestOutstanding 上一条命令的应答尚未取走（协议只允许一条在途请求）
	ErrRequestOutstanding = errors.New("driver: request outstanding")
)
