package mdns

import "errors"

var (
	// ErrAlreadyStarted 通告已启动
	ErrAlreadyStarted = errors.New("mdns: already started")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("mdns: invalid config")

	// ErrPortUnknown 信令服务端口未知
	ErrPortUnknown = errors.New("mdns: port unknown")

	// ErrNoLocalIPs 没有可通告的局域网地址
	ErrNoLocalIPs = errors.New("mdns: no LAN addresses to advertise")
)
