// Package app 提供信令服务的应用编排层
//
// app 包负责：
//   - fx 模块组装
//   - 日志配置
//   - 生命周期管理与配置热更新
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-signal/config"
	"github.com/dep2p/go-signal/internal/core/introspect"
	"github.com/dep2p/go-signal/internal/core/metrics"
	"github.com/dep2p/go-signal/internal/core/server"
	"github.com/dep2p/go-signal/internal/util/logger"
)

var log = logger.Logger("app")

// 默认超时
const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 30 * time.Second
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	config     *config.Config
	configPath string
	clk        clock.Clock
	extra      []fx.Option

	fxApp   *fx.App
	runtime Runtime
	watcher *configWatcher
}

// NewBootstrap 创建引导程序
func NewBootstrap(cfg *config.Config, opts ...BootstrapOption) *Bootstrap {
	b := &Bootstrap{config: cfg}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 构建应用（不启动）
func (b *Bootstrap) Build() error {
	if b.fxApp != nil {
		return nil
	}
	if b.config == nil {
		b.config = config.NewConfig()
	}

	cfg, err := config.ValidateAndFix(b.config)
	if err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	b.config = cfg

	// 日志配置必须在所有模块初始化之前应用
	applyLogConfig(cfg.Log)

	modules := []fx.Option{
		b.setupConfigModule(),
		foundationModules(),
		coreModules(),
		optionalModules(),
		fx.WithLogger(fxLogger(cfg.Log.FxEvents)),
		fx.Populate(&b.runtime.Server, &b.runtime.Collector, &b.runtime.Introspect),
	}
	modules = append(modules, b.extra...)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return fmt.Errorf("组装模块失败: %w", err)
	}
	b.fxApp = app
	return nil
}

// Start 构建并启动应用
func (b *Bootstrap) Start(ctx context.Context) (*Runtime, error) {
	if err := b.Build(); err != nil {
		return nil, err
	}

	startCtx, cancel := context.WithTimeout(ctx, DefaultStartTimeout)
	defer cancel()
	if err := b.fxApp.Start(startCtx); err != nil {
		return nil, fmt.Errorf("启动应用失败: %w", err)
	}

	if b.configPath != "" {
		w, err := watchConfig(b.configPath, nil)
		if err != nil {
			log.Warn("配置热更新不可用", "path", b.configPath, "err", err)
		} else {
			b.watcher = w
		}
	}

	log.Info("信令服务已就绪",
		"instance", b.config.InstanceID,
		"addr", b.runtime.Server.Addr().String())
	b.runtime.stop = b.Stop
	return &b.runtime, nil
}

// Stop 停止应用
func (b *Bootstrap) Stop(ctx context.Context) error {
	if b.fxApp == nil {
		return nil
	}
	if b.watcher != nil {
		_ = b.watcher.Close()
		b.watcher = nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, DefaultStopTimeout)
	defer cancel()
	return b.fxApp.Stop(stopCtx)
}

// Config 返回校验修正后的配置
func (b *Bootstrap) Config() *config.Config {
	return b.config
}

// setupConfigModule 配置与时钟
func (b *Bootstrap) setupConfigModule() fx.Option {
	clk := b.clk
	if clk == nil {
		clk = clock.New()
	}
	return fx.Options(
		fx.Supply(b.config),
		fx.Provide(func() clock.Clock { return clk }),
	)
}

// fxLogger 默认丢弃容器事件，fx_events 为 true 时用 zap 开发日志输出
func fxLogger(verbose bool) func() fxevent.Logger {
	return func() fxevent.Logger {
		if !verbose {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}
		z, err := zap.NewDevelopment()
		if err != nil {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}
		return &fxevent.ZapLogger{Logger: z}
	}
}

// applyLogConfig 应用配置中的日志级别与格式，空值沿用环境变量
func applyLogConfig(cfg config.LogConfig) {
	if cfg.Level != "" {
		if err := logger.Apply(cfg.Level); err != nil {
			log.Warn("日志级别无效，保持当前级别", "level", cfg.Level, "err", err)
		}
	}
	if cfg.Format != "" {
		logger.SetFormat(logger.ParseFormat(cfg.Format))
	}
}

// Runtime 已启动的应用句柄
type Runtime struct {
	Server     *server.Server
	Collector  *metrics.Collector
	Introspect *introspect.Server

	stop func(ctx context.Context) error
}

// Stop 停止运行时（触发 fx OnStop）
func (r *Runtime) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	return r.stop(ctx)
}
