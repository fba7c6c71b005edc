package eventbus

import (
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
)

// Module 事件总线模块
//
// 总线在应用停止时关闭，所有订阅通道随之关闭。
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(provide),
	)
}

func provide(lc fx.Lifecycle) pkgif.EventBus {
	bus := NewBus()
	lc.Append(fx.StopHook(bus.Close))
	return bus
}
