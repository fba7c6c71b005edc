package metrics

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
)

// Params 依赖参数
type Params struct {
	fx.In

	Clock clock.Clock `optional:"true"`
}

// Result 输出
type Result struct {
	fx.Out

	Collector *Collector
	Traffic   *Traffic
}

// Module 返回 metrics 的 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

// Provide 创建 Collector 与 Traffic
func Provide(p Params) Result {
	traffic := NewTraffic(p.Clock)
	return Result{
		Collector: NewCollector(traffic),
		Traffic:   traffic,
	}
}

type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Collector *Collector
	EventBus  pkgif.EventBus
}

func registerLifecycle(in lifecycleInput) {
	in.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			return in.Collector.Start(in.EventBus)
		},
		OnStop: func(_ context.Context) error {
			return in.Collector.Stop()
		},
	})
}
