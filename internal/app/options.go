package app

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
)

// BootstrapOption Bootstrap 配置选项
type BootstrapOption func(*Bootstrap)

// WithConfigPath 设置配置文件路径，启动后监听其变化
func WithConfigPath(path string) BootstrapOption {
	return func(b *Bootstrap) {
		b.configPath = path
	}
}

// WithClock 替换时钟，测试中使用 clock.NewMock()
func WithClock(clk clock.Clock) BootstrapOption {
	return func(b *Bootstrap) {
		b.clk = clk
	}
}

// WithFxOptions 追加 fx 选项
func WithFxOptions(opts ...fx.Option) BootstrapOption {
	return func(b *Bootstrap) {
		b.extra = append(b.extra, opts...)
	}
}
