package mdns

import (
	"fmt"
	"time"

	"github.com/dep2p/go-signal/config"
)

const (
	// DefaultService 服务类型
	DefaultService = "_dep2p-signal._tcp"

	// DefaultDomain 域
	DefaultDomain = "local."

	// DefaultBrowseTimeout 一次查询的等待时间
	DefaultBrowseTimeout = 3 * time.Second
)

// Config 通告配置
type Config struct {
	// Service 服务类型
	Service string

	// Domain 域
	Domain string

	// Instance 实例名
	Instance string

	// InstanceID 写入 TXT 的实例标识
	InstanceID string

	// Path 注册路径，写入 TXT
	Path string

	// Port 信令服务端口
	Port int

	// Interface 指定网卡，空表示全部
	Interface string
}

// ConfigFromUnified 从统一配置创建通告配置，端口在服务启动后确定
func ConfigFromUnified(cfg *config.Config) Config {
	instance := cfg.Discovery.MDNSInstance
	if instance == "" {
		instance = "signal-" + shortID(cfg.InstanceID)
	}
	return Config{
		Service:    cfg.Discovery.MDNSService,
		Domain:     cfg.Discovery.MDNSDomain,
		Instance:   instance,
		InstanceID: cfg.InstanceID,
		Path:       "/sign_in",
		Interface:  cfg.Discovery.MDNSInterface,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if c.Service == "" || c.Domain == "" || c.Instance == "" {
		return fmt.Errorf("%w: service, domain and instance are required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ErrPortUnknown
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
