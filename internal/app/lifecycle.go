package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"
)

// Run 启动应用并阻塞，直到 ctx 取消、收到 SIGINT/SIGTERM 或传输层异常退出
//
// 返回前按生命周期逆序关闭所有模块。
func Run(ctx context.Context, b *Bootstrap) error {
	rt, err := b.Start(ctx)
	if err != nil {
		_ = b.Stop(context.Background())
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	var runErr error
	select {
	case sig := <-signals:
		log.Info("收到信号，正在退出", "signal", sig.String())
	case <-ctx.Done():
		log.Info("上下文已取消，正在退出")
	case <-rt.Server.Done():
		runErr = fmt.Errorf("信令服务意外退出")
		log.Error("信令服务意外退出")
	}

	return multierr.Append(runErr, rt.Stop(context.Background()))
}
