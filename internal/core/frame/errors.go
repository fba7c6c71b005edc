package frame

import "errors"

var (
	// ErrMalformedRequest 请求行或头部无法解析
	ErrMalformedRequest = errors.New("frame: malformed request")

	// ErrUnsupportedMethod 方法不是 GET/POST/OPTIONS
	ErrUnsupportedMethod = errors.New("frame: unsupported method")

	// ErrHeaderTooLarge 头部超过上限仍未结束
	ErrHeaderTooLarge = errors.New("frame: header too large")

	// ErrBodyTooLarge 请求体超过上限
	ErrBodyTooLarge = errors.New("frame: body too large")
)
