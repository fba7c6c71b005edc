package config

import (
	"errors"
	"time"
)

// MaxNameLength 名称长度上限
const MaxNameLength = 512

// ChannelConfig 成员注册表配置
type ChannelConfig struct {
	// MemberTimeout 未挂起成员的空闲超时
	MemberTimeout Duration `json:"member_timeout" yaml:"member_timeout"`

	// SweepInterval 超时清扫周期
	SweepInterval Duration `json:"sweep_interval" yaml:"sweep_interval"`

	// MaxNameLength 名称最大字节数（1-512）
	MaxNameLength int `json:"max_name_length" yaml:"max_name_length"`

	// MaxQueueDepth 每成员积压上限，0 表示不限制，超限丢弃最旧
	MaxQueueDepth int `json:"max_queue_depth" yaml:"max_queue_depth"`

	// ShutdownMessage 关闭时投递给所有成员的内容
	ShutdownMessage string `json:"shutdown_message" yaml:"shutdown_message"`
}

// DefaultChannelConfig 返回默认注册表配置
func DefaultChannelConfig() ChannelConfig {
	return ChannelConfig{
		MemberTimeout:   Duration(30 * time.Second),
		SweepInterval:   Duration(5 * time.Second),
		MaxNameLength:   MaxNameLength,
		MaxQueueDepth:   0,
		ShutdownMessage: "Server shutting down",
	}
}

// Validate 验证注册表配置
func (c ChannelConfig) Validate() error {
	if c.MemberTimeout <= 0 {
		return errors.New("member timeout must be positive")
	}
	if c.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}
	if c.SweepInterval > c.MemberTimeout {
		return errors.New("sweep interval must not exceed member timeout")
	}
	if c.MaxNameLength < 1 || c.MaxNameLength > MaxNameLength {
		return errors.New("max name length must be between 1 and 512")
	}
	if c.MaxQueueDepth < 0 {
		return errors.New("max queue depth must be non-negative")
	}
	return nil
}
