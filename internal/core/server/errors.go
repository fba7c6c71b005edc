package server

import "errors"

var (
	// ErrServerClosed 服务已关闭
	ErrServerClosed = errors.New("server: closed")

	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("server: already started")

	// ErrConnClosed 连接已关闭
	ErrConnClosed = errors.New("server: connection closed")
)
