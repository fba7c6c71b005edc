package channel

import "errors"

var (
	// ErrPeerNotFound 未找到 peer_id 或 to 指向的成员
	ErrPeerNotFound = errors.New("channel: peer not found")

	// ErrNotPeerConnection 请求不是成员连接
	ErrNotPeerConnection = errors.New("channel: not a peer connection")

	// ErrDeliveryFailed 向连接写出响应失败
	ErrDeliveryFailed = errors.New("channel: delivery failed")

	// ErrClosed 注册表已关闭
	ErrClosed = errors.New("channel: closed")
)
