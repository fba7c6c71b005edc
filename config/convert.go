package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FromJSON 从 JSON 创建配置，未出现的字段保持默认值
//
// 示例 JSON:
//
//	{
//	  "server": {"listen_addr": "0.0.0.0:8888"},
//	  "channel": {"member_timeout": "30s", "max_queue_depth": 256}
//	}
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// FromYAML 从 YAML 创建配置，未出现的字段保持默认值
func FromYAML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// LoadFile 按扩展名加载配置文件（.json / .yaml / .yml）
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FromJSON(data)
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %q", filepath.Ext(path))
	}
}

// ToYAML 序列化为 YAML
func ToYAML(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	return yaml.Marshal(cfg)
}

// ApplyPreset 应用预设配置
//
// 支持的预设：
//   - "default": 默认值，不做修改
//   - "public": 公网部署（限速、连接上限、有界队列）
//   - "lan": 局域网部署（mDNS 通告，不限速）
func ApplyPreset(cfg *Config, presetName string) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	switch presetName {
	case "", "default":
		return nil
	case "public":
		applyPublicPreset(cfg)
		return nil
	case "lan":
		applyLANPreset(cfg)
		return nil
	default:
		return fmt.Errorf("unknown preset: %s", presetName)
	}
}

// applyPublicPreset 公网预设
func applyPublicPreset(cfg *Config) {
	cfg.Server.MaxConnections = 4096
	cfg.Server.WriteTimeout = Duration(5 * time.Second)
	cfg.Server.MaxBodyBytes = 256 << 10

	cfg.Channel.MaxQueueDepth = 256

	cfg.Limits.EnableRateLimit = true

	cfg.Discovery.EnableMDNS = false
}

// applyLANPreset 局域网预设
func applyLANPreset(cfg *Config) {
	cfg.Limits.EnableRateLimit = false
	cfg.Discovery.EnableMDNS = true
}

// CloneConfig 返回配置的副本（所有字段均为值类型）
func CloneConfig(cfg *Config) *Config {
	if cfg == nil {
		return nil
	}
	cloned := *cfg
	return &cloned
}
