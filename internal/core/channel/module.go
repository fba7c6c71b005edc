package channel

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-signal/config"
	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
)

// Params 依赖参数
type Params struct {
	fx.In

	Config   *config.Config
	Clock    clock.Clock    `optional:"true"`
	EventBus pkgif.EventBus `optional:"true"`
}

// Result 输出
type Result struct {
	fx.Out

	Channel *Channel
}

// Module 返回 channel 的 Fx 模块
//
// Channel 不是并发安全的，只能由 server 的分发协程使用；
// 关闭时由 server 在分发协程内调用 CloseAll。
func Module() fx.Option {
	return fx.Module("channel",
		fx.Provide(Provide),
	)
}

// Provide 按配置创建注册表
func Provide(p Params) (Result, error) {
	ch, err := New(OptionsFromConfig(p.Config.Channel), p.Clock, p.EventBus)
	if err != nil {
		return Result{}, err
	}
	return Result{Channel: ch}, nil
}

// OptionsFromConfig 配置映射为注册表参数
func OptionsFromConfig(cfg config.ChannelConfig) Options {
	return Options{
		MemberTimeout:   cfg.MemberTimeout.Duration(),
		MaxNameLength:   cfg.MaxNameLength,
		MaxQueueDepth:   cfg.MaxQueueDepth,
		ShutdownMessage: cfg.ShutdownMessage,
	}
}
