package introspect

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-signal/config"
	"github.com/dep2p/go-signal/internal/core/metrics"
	"github.com/dep2p/go-signal/internal/core/server"
)

// ModuleInput 模块输入
type ModuleInput struct {
	fx.In

	Config    *config.Config
	Server    *server.Server
	Collector *metrics.Collector `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Introspect *Server
}

// ProvideServer 提供诊断服务
func ProvideServer(in ModuleInput) ModuleOutput {
	cfg := Config{
		Addr:       in.Config.Diagnostics.DiagnosticsAddr,
		InstanceID: in.Config.InstanceID,
		Source:     in.Server,
	}
	if in.Collector != nil {
		cfg.Registry = in.Collector.Registry()
	}
	return ModuleOutput{Introspect: New(cfg)}
}

// Module 返回 introspect fx 模块
//
// 仅在 diagnostics.enable_diagnostics 为 true 时启动。
func Module() fx.Option {
	return fx.Module("introspect",
		fx.Provide(ProvideServer),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, s *Server) {
			if !cfg.Diagnostics.EnableDiagnostics {
				return
			}
			lc.Append(fx.Hook{
				OnStart: s.Start,
				OnStop:  s.Stop,
			})
		}),
	)
}
