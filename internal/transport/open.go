package transport

import (
	"context"
	"fmt"

	cfgpkg "github.com/taoyao-code/ratesensor/internal/config"
)

// Open 按配置打开字节通道；listen 为 true 时 TCP 通道作为被连接方（模拟器侧）。
// pipe 通道只能在同一进程内成对创建，这里返回错误。
func Open(ctx context.Context, cfg cfgpkg.TransportConfig, listen bool) (Port, error) {
	switch cfg.Kind {
	case "serial":
		p, err := OpenSerial(cfg.Serial)
		if err != nil {
			return nil, err
		}
		return p, nil
	case "tcp":
		var (
			p   *TCPPort
			err error
		)
		if listen {
			p, err = ListenTCP(ctx, cfg.TCP)
		} else {
			p, err = DialTCP(ctx, cfg.TCP)
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	case "pipe":
		return nil, fmt.Errorf("%w: pipe is in-process only", ErrUnknownKind)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}
