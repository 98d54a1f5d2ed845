package cron

import (
	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/hosting"
)

// BuilderOption 用于配置 Cron Builder
type BuilderOption func(*Builder)

// WithSeconds 启用秒级精度
func WithSeconds() BuilderOption {
	return func(b *Builder) {
		b.WithSeconds()
	}
}

// WithLocation 设置时区
func WithLocation(location string) BuilderOption {
	return func(b *Builder) {
		b.WithLocation(location)
	}
}

// EnableCronLogger 启用 cron 库的内部调度日志
func EnableCronLogger() BuilderOption {
	return func(b *Builder) {
		b.EnableCronLogger()
	}
}

// AddJob 添加任务
func AddJob(spec, name string, handler any) BuilderOption {
	return func(b *Builder) {
		b.AddJob(spec, name, handler)
	}
}

// New 启用 Cron 能力：构建调度器，并注册为托管服务和 *Scheduler 单例
func New(c *di.Container, opts ...BuilderOption) (*Scheduler, error) {
	builder := NewBuilder()
	for _, opt := range opts {
		opt(builder)
	}

	s, err := builder.Build(c)
	if err != nil {
		return nil, err
	}
	if err := di.RegisterValue(c, s); err != nil {
		return nil, err
	}
	if err := di.RegisterValue[hosting.HostedService](c, s); err != nil {
		return nil, err
	}
	return s, nil
}
