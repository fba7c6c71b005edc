package config

import (
	"errors"
	"strings"
)

// DiscoveryConfig 局域网发现配置
type DiscoveryConfig struct {
	// EnableMDNS 通过 mDNS 在局域网通告信令服务
	EnableMDNS bool `json:"enable_mdns" yaml:"enable_mdns"`

	// MDNSService 服务类型
	MDNSService string `json:"mdns_service" yaml:"mdns_service"`

	// MDNSDomain 域，默认 "local."
	MDNSDomain string `json:"mdns_domain" yaml:"mdns_domain"`

	// MDNSInstance 实例名，为空时使用实例标识
	MDNSInstance string `json:"mdns_instance,omitempty" yaml:"mdns_instance,omitempty"`

	// MDNSInterface 绑定的网卡名，为空表示全部
	MDNSInterface string `json:"mdns_interface,omitempty" yaml:"mdns_interface,omitempty"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		EnableMDNS:  false,
		MDNSService: "_dep2p-signal._tcp",
		MDNSDomain:  "local.",
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if !c.EnableMDNS {
		return nil
	}
	if !strings.HasPrefix(c.MDNSService, "_") || !strings.Contains(c.MDNSService, "._") {
		return errors.New("mdns service must look like _name._tcp")
	}
	if c.MDNSDomain == "" {
		return errors.New("mdns domain is required")
	}
	return nil
}
