package channel

import "github.com/dep2p/go-signal/internal/core/frame"

// Conn 传输层连接句柄
//
// 即时应答与长轮询的延迟应答都通过 Send 完成。
type Conn interface {
	// ID 返回连接标识
	ID() string

	// Frame 返回该连接上已完整解析的请求帧
	Frame() *frame.Frame

	// Send 写出响应；KeepAlive 为 false 时发送后关闭连接。
	// 返回错误视为投递失败。
	Send(resp frame.Response) error

	// Close 不发送任何响应直接关闭连接
	Close() error
}
