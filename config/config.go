// Package config 提供信令服务的统一配置
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义，
// 各自提供 DefaultXxxConfig() 与 Validate()。
//
// 使用示例：
//
//	// 默认配置
//	cfg := config.NewConfig()
//	cfg.Server.ListenAddr = "0.0.0.0:9000"
//
//	// 应用预设
//	_ = config.ApplyPreset(cfg, "public")
//
//	// 从文件加载（按扩展名识别 JSON / YAML）
//	cfg, err := config.LoadFile("signal.yaml")
package config

import (
	"fmt"

	"github.com/google/uuid"
)

// Config 信令服务完整配置
//
//   - Server: 监听与连接处理
//   - Channel: 成员注册表
//   - Limits: 按来源 IP 的限速
//   - Discovery: 局域网 mDNS 通告
//   - Diagnostics: 指标与调试端点
//   - Log: 日志
type Config struct {
	// InstanceID 实例标识，为空时自动生成
	InstanceID string `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`

	// Server 服务端配置
	Server ServerConfig `json:"server" yaml:"server"`

	// Channel 成员注册表配置
	Channel ChannelConfig `json:"channel" yaml:"channel"`

	// Limits 限速配置
	Limits LimitsConfig `json:"limits" yaml:"limits"`

	// Discovery 发现配置
	Discovery DiscoveryConfig `json:"discovery" yaml:"discovery"`

	// Diagnostics 诊断服务配置
	Diagnostics DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics"`

	// Log 日志配置
	Log LogConfig `json:"log" yaml:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Server:      DefaultServerConfig(),
		Channel:     DefaultChannelConfig(),
		Limits:      DefaultLimitsConfig(),
		Discovery:   DefaultDiscoveryConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
		Log:         DefaultLogConfig(),
	}
}

// Validate 验证所有子配置
func (c *Config) Validate() error {
	for name, sub := range map[string]interface{ Validate() error }{
		"server":      c.Server,
		"channel":     c.Channel,
		"limits":      c.Limits,
		"discovery":   c.Discovery,
		"diagnostics": c.Diagnostics,
		"log":         c.Log,
	} {
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// EnsureInstanceID 为空时生成随机实例标识
func (c *Config) EnsureInstanceID() string {
	if c.InstanceID == "" {
		c.InstanceID = uuid.NewString()
	}
	return c.InstanceID
}
