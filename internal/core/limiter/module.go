package limiter

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-signal/config"
)

// Params 依赖参数
type Params struct {
	fx.In

	Config *config.Config
	Clock  clock.Clock `optional:"true"`
}

// Module 返回 limiter 的 Fx 模块
//
// 未启用限速时提供 nil，*Limiter 的方法对 nil 安全。
func Module() fx.Option {
	return fx.Module("limiter",
		fx.Provide(func(p Params) *Limiter {
			l := New(p.Config.Limits, p.Clock)
			if l != nil {
				log.Info("已启用限速",
					"request_rps", p.Config.Limits.RequestRPS,
					"sign_in_rps", p.Config.Limits.SignInRPS)
			}
			return l
		}),
	)
}
