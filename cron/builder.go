package cron

import (
	"fmt"
	"reflect"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/gocrud/compose/di"
)

// Builder Cron 配置构建器
type Builder struct {
	enableSeconds    bool
	enableCronLogger bool
	location         string
	jobs             []jobDefinition
}

// jobDefinition 任务定义
type jobDefinition struct {
	spec    string
	name    string
	handler any
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{location: "UTC"}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// EnableCronLogger 启用 cron 库的内部调度日志
func (b *Builder) EnableCronLogger() *Builder {
	b.enableCronLogger = true
	return b
}

// AddJob 添加任务。每次执行都在新的作用域中调用 handler，
// handler 的第一个参数可以是 context.Context，其余参数从作用域解析。
//
// 示例：
//
//	builder.AddJob("0 */5 * * * *", "sync-data", func(ctx context.Context, svc *DataService) error {
//	    return svc.Sync(ctx)
//	})
func (b *Builder) AddJob(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// Build 构建调度器，任务表达式和时区在这里校验
func (b *Builder) Build(c *di.Container) (*Scheduler, error) {
	loc, err := time.LoadLocation(b.location)
	if err != nil {
		return nil, fmt.Errorf("cron: invalid location %q: %w", b.location, err)
	}

	logger := c.Options().Logger.WithCategory("cron")
	cronOpts := []cron.Option{
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(newCronLogger(logger))),
	}
	if b.enableCronLogger {
		cronOpts = append(cronOpts, cron.WithLogger(newCronLogger(logger)))
	}
	if b.enableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	s := newScheduler(c, logger, cron.New(cronOpts...))
	for _, job := range b.jobs {
		if t := reflect.TypeOf(job.handler); t == nil || t.Kind() != reflect.Func {
			return nil, fmt.Errorf("cron: job '%s' handler must be a function, got %T", job.name, job.handler)
		}
		if err := s.addJob(job.spec, job.name, job.handler); err != nil {
			return nil, err
		}
	}
	return s, nil
}
