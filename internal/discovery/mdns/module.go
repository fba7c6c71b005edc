package mdns

import (
	"context"
	"net"

	"go.uber.org/fx"

	"github.com/dep2p/go-signal/config"
	"github.com/dep2p/go-signal/internal/core/server"
)

// ModuleInput Fx 输入参数
type ModuleInput struct {
	fx.In

	LC     fx.Lifecycle
	Config *config.Config
	Server *server.Server
}

// Module 返回 Fx 模块
//
// 仅在 discovery.enable_mdns 为 true 时注册；通告在信令服务启动后开始，
// 端口取实际监听端口。通告失败不影响信令服务。
func Module() fx.Option {
	return fx.Module("discovery/mdns",
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(in ModuleInput) {
	if !in.Config.Discovery.EnableMDNS {
		return
	}

	var announcer *Announcer
	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			cfg := ConfigFromUnified(in.Config)
			if tcp, ok := in.Server.Addr().(*net.TCPAddr); ok {
				cfg.Port = tcp.Port
			}
			announcer = NewAnnouncer(cfg)
			if err := announcer.Start(); err != nil {
				log.Warn("启动 mDNS 通告失败", "err", err)
				announcer = nil
			}
			return nil
		},
		OnStop: func(_ context.Context) error {
			if announcer == nil {
				return nil
			}
			return announcer.Stop()
		},
	})
}
