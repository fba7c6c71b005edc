package config

import (
	"errors"
	"fmt"
)

// ValidateAll 验证整个配置
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	return c.Validate()
}

// ValidateAndFix 修复常见问题后验证
//
// 可修复的问题：
//   - 超时或周期为非正数 -> 使用默认值
//   - 清扫周期大于成员超时 -> 使用超时的一半
//   - 名称长度越界 -> 512
//   - 关闭通知为空 -> 默认文案
//   - 实例标识为空 -> 生成
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		c = NewConfig()
	}

	def := NewConfig()

	if c.Server.ReadBufferSize <= 0 {
		c.Server.ReadBufferSize = def.Server.ReadBufferSize
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.MaxHeaderBytes <= 0 {
		c.Server.MaxHeaderBytes = def.Server.MaxHeaderBytes
	}

	if c.Channel.MemberTimeout <= 0 {
		c.Channel.MemberTimeout = def.Channel.MemberTimeout
	}
	if c.Channel.SweepInterval <= 0 {
		c.Channel.SweepInterval = def.Channel.SweepInterval
	}
	if c.Channel.SweepInterval > c.Channel.MemberTimeout {
		c.Channel.SweepInterval = c.Channel.MemberTimeout / 2
	}
	if c.Channel.MaxNameLength <= 0 || c.Channel.MaxNameLength > MaxNameLength {
		c.Channel.MaxNameLength = MaxNameLength
	}
	if c.Channel.MaxQueueDepth < 0 {
		c.Channel.MaxQueueDepth = 0
	}
	if c.Channel.ShutdownMessage == "" {
		c.Channel.ShutdownMessage = def.Channel.ShutdownMessage
	}

	c.EnsureInstanceID()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed after fixes: %w", err)
	}
	return c, nil
}

// MustValidate 验证失败时 panic，仅用于初始化或测试
func MustValidate(c *Config) {
	if err := c.Validate(); err != nil {
		panic(fmt.Sprintf("config validation failed: %v", err))
	}
}
