package compose

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gocrud/compose/config"
)

// Run 创建运行时并运行主机，直到收到退出信号或托管服务失败
func Run(ctx context.Context, cfg config.Configuration, opts ...Option) error {
	rt, err := NewRuntime(cfg, opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

// Run 运行主机，收到 Ctrl+C 或 SIGTERM 时优雅关闭
func (rt *Runtime) Run(ctx context.Context) error {
	defer rt.loggerFactory.Sync()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.Logger.Info("application starting")
	err := rt.Host.Run(ctx)
	rt.Logger.Info("application stopped")
	return err
}
