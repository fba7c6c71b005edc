package server

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-signal/config"
	"github.com/dep2p/go-signal/internal/core/channel"
	"github.com/dep2p/go-signal/internal/core/limiter"
	"github.com/dep2p/go-signal/internal/core/metrics"
)

// Params 依赖参数
type Params struct {
	fx.In

	Config    *config.Config
	Channel   *channel.Channel
	Clock     clock.Clock        `optional:"true"`
	Limiter   *limiter.Limiter   `optional:"true"`
	Collector *metrics.Collector `optional:"true"`
	Traffic   *metrics.Traffic   `optional:"true"`
}

// Result 输出
type Result struct {
	fx.Out

	Server *Server
}

// Provide 按配置创建服务
func Provide(p Params) Result {
	return Result{Server: New(Deps{
		Config:        p.Config.Server,
		SweepInterval: p.Config.Channel.SweepInterval.Duration(),
		Channel:       p.Channel,
		Clock:         p.Clock,
		Limiter:       p.Limiter,
		Collector:     p.Collector,
		Traffic:       p.Traffic,
	})}
}

// Module 返回 server 的 Fx 模块
func Module() fx.Option {
	return fx.Module("server",
		fx.Provide(Provide),
		fx.Invoke(func(lc fx.Lifecycle, s *Server) {
			lc.Append(fx.Hook{
				OnStart: s.Start,
				OnStop:  s.Stop,
			})
		}),
	)
}
