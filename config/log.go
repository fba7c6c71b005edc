package config

import (
	"fmt"

	"github.com/dep2p/go-signal/internal/util/logger"
)

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，支持 "subsystem=level,...,default" 形式，为空时沿用环境变量
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// Format 输出格式：text 或 json，为空时沿用环境变量
	Format string `json:"format,omitempty" yaml:"format,omitempty"`

	// FxEvents 输出依赖注入容器事件
	FxEvents bool `json:"fx_events" yaml:"fx_events"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	if c.Level != "" {
		if err := logger.ValidateLevelString(c.Level); err != nil {
			return err
		}
	}
	switch c.Format {
	case "", "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid log format %q", c.Format)
	}
}
