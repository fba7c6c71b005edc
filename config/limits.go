package config

import (
	"errors"
	"time"
)

// LimitsConfig 按来源 IP 的限速配置
type LimitsConfig struct {
	// EnableRateLimit 启用限速
	EnableRateLimit bool `json:"enable_rate_limit" yaml:"enable_rate_limit"`

	// SignInRPS 每 IP 每秒注册次数
	SignInRPS float64 `json:"sign_in_rps" yaml:"sign_in_rps"`

	// SignInBurst 注册突发量
	SignInBurst int `json:"sign_in_burst" yaml:"sign_in_burst"`

	// RequestRPS 每 IP 每秒请求数
	RequestRPS float64 `json:"request_rps" yaml:"request_rps"`

	// RequestBurst 请求突发量
	RequestBurst int `json:"request_burst" yaml:"request_burst"`

	// MaxTrackedIPs 同时跟踪的 IP 数上限
	MaxTrackedIPs int `json:"max_tracked_ips" yaml:"max_tracked_ips"`

	// IdleTTL 限速器条目的空闲淘汰时间
	IdleTTL Duration `json:"idle_ttl" yaml:"idle_ttl"`
}

// DefaultLimitsConfig 返回默认限速配置（默认禁用）
func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		EnableRateLimit: false,
		SignInRPS:       1,
		SignInBurst:     5,
		RequestRPS:      50,
		RequestBurst:    100,
		MaxTrackedIPs:   10000,
		IdleTTL:         Duration(10 * time.Minute),
	}
}

// Validate 验证限速配置
func (c LimitsConfig) Validate() error {
	if !c.EnableRateLimit {
		return nil
	}
	if c.SignInRPS <= 0 || c.RequestRPS <= 0 {
		return errors.New("rate limit rps must be positive")
	}
	if c.SignInBurst < 1 || c.RequestBurst < 1 {
		return errors.New("rate limit burst must be at least 1")
	}
	if c.MaxTrackedIPs < 1 {
		return errors.New("max tracked ips must be at least 1")
	}
	if c.IdleTTL <= 0 {
		return errors.New("idle ttl must be positive")
	}
	return nil
}
