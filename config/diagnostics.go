package config

import (
	"errors"
	"net"
)

// DiagnosticsConfig 诊断服务配置
type DiagnosticsConfig struct {
	// EnableDiagnostics 启用 /metrics 与 /debug/members
	EnableDiagnostics bool `json:"enable_diagnostics" yaml:"enable_diagnostics"`

	// DiagnosticsAddr 监听地址，默认 "127.0.0.1:6060"
	DiagnosticsAddr string `json:"diagnostics_addr" yaml:"diagnostics_addr"`
}

// DefaultDiagnosticsConfig 返回默认诊断配置
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		EnableDiagnostics: false,
		DiagnosticsAddr:   "127.0.0.1:6060",
	}
}

// Validate 验证诊断配置
func (c DiagnosticsConfig) Validate() error {
	if !c.EnableDiagnostics {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.DiagnosticsAddr); err != nil {
		return errors.New("diagnostics address must be host:port")
	}
	return nil
}
