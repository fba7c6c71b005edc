package app

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-signal/internal/core/channel"
	"github.com/dep2p/go-signal/internal/core/eventbus"
	"github.com/dep2p/go-signal/internal/core/introspect"
	"github.com/dep2p/go-signal/internal/core/limiter"
	"github.com/dep2p/go-signal/internal/core/metrics"
	"github.com/dep2p/go-signal/internal/core/server"
	"github.com/dep2p/go-signal/internal/discovery/mdns"
)

// foundationModules 基础层：事件总线、指标
//
// metrics 先于 server 注册，保证订阅在第一条事件之前建立。
func foundationModules() fx.Option {
	return fx.Options(
		eventbus.Module(),
		metrics.Module(),
	)
}

// coreModules 核心层：注册表、限速、传输
func coreModules() fx.Option {
	return fx.Options(
		channel.Module(),
		limiter.Module(),
		server.Module(),
	)
}

// optionalModules 按配置启用的模块：诊断服务、mDNS 通告
//
// 两者的生命周期钩子在 server 之后注册，启动时已能取到实际监听地址。
func optionalModules() fx.Option {
	return fx.Options(
		introspect.Module(),
		mdns.Module(),
	)
}
