package config

import (
	"errors"
	"net"
	"time"
)

// ServerConfig 服务端配置
type ServerConfig struct {
	// ListenAddr 监听地址，默认 "0.0.0.0:8888"
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`

	// MaxConnections 最大并发连接数，0 表示不限制
	MaxConnections int `json:"max_connections" yaml:"max_connections"`

	// ReadBufferSize 每次读取的缓冲大小
	ReadBufferSize int `json:"read_buffer_size" yaml:"read_buffer_size"`

	// WriteTimeout 单次响应写出超时，超时视为投递失败
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout"`

	// MaxHeaderBytes 请求头上限
	MaxHeaderBytes int `json:"max_header_bytes" yaml:"max_header_bytes"`

	// MaxBodyBytes 请求体上限
	MaxBodyBytes int `json:"max_body_bytes" yaml:"max_body_bytes"`

	// ServerName 响应 Server 头，为空则不写
	ServerName string `json:"server_name" yaml:"server_name"`
}

// DefaultServerConfig 返回默认服务端配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:     "0.0.0.0:8888",
		MaxConnections: 0,
		ReadBufferSize: 4096,
		WriteTimeout:   Duration(10 * time.Second),
		MaxHeaderBytes: 8 << 10,
		MaxBodyBytes:   1 << 20,
		ServerName:     "dep2p-signal/1.0",
	}
}

// Validate 验证服务端配置
func (c ServerConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return errors.New("listen address must be host:port")
	}
	if c.MaxConnections < 0 {
		return errors.New("max connections must be non-negative")
	}
	if c.ReadBufferSize < 512 {
		return errors.New("read buffer size must be at least 512")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	if c.MaxHeaderBytes < 256 {
		return errors.New("max header bytes must be at least 256")
	}
	if c.MaxBodyBytes < 0 {
		return errors.New("max body bytes must be non-negative")
	}
	return nil
}
