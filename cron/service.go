package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/hosting"
	"github.com/gocrud/compose/logging"
)

// Scheduler Cron 定时任务托管服务，实现 hosting.HostedService
type Scheduler struct {
	cron      *cron.Cron
	container *di.Container
	logger    logging.Logger

	mu       sync.RWMutex
	jobs     map[string]cron.EntryID // 任务名称到任务ID的映射
	handlers map[string]any
	ctx      context.Context
}

func newScheduler(c *di.Container, logger logging.Logger, cr *cron.Cron) *Scheduler {
	return &Scheduler{
		cron:      cr,
		container: c,
		logger:    logger,
		jobs:      make(map[string]cron.EntryID),
		handlers:  make(map[string]any),
		ctx:       context.Background(),
	}
}

// addJob 添加定时任务
// spec: cron 表达式，如 "0 */5 * * * *" (每5分钟) 或 "@every 1h"
func (s *Scheduler) addJob(spec, name string, handler any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("cron: job '%s' already registered", name)
	}
	entryID, err := s.cron.AddFunc(spec, func() {
		_ = s.run(name, handler)
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job '%s': %w", name, err)
	}

	s.jobs[name] = entryID
	s.handlers[name] = handler
	s.logger.Debug(fmt.Sprintf("Cron job '%s' registered with spec '%s'", name, spec))
	return nil
}

// run 在独立作用域中执行一次任务，panic 转换为错误
func (s *Scheduler) run(name string, handler any) (err error) {
	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	s.logger.Debug(fmt.Sprintf("Cron job '%s' started", name))
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cron: job '%s' panicked: %v", name, r)
		}
		if err != nil {
			s.logger.Error(fmt.Sprintf("Cron job '%s' failed", name),
				logging.Field{Key: "error", Value: err.Error()})
			return
		}
		s.logger.Debug(fmt.Sprintf("Cron job '%s' completed", name))
	}()
	return hosting.InvokeInScope(ctx, s.container, handler)
}

// RunJob 立即执行一次指定任务
func (s *Scheduler) RunJob(name string) error {
	s.mu.RLock()
	handler, ok := s.handlers[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("cron: job '%s' not found", name)
	}
	return s.run(name, handler)
}

// RemoveJob 移除定时任务
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, exists := s.jobs[name]; exists {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		delete(s.handlers, name)
		s.logger.Info(fmt.Sprintf("Cron job '%s' removed", name))
	}
}

// Jobs 返回已注册的任务名称
func (s *Scheduler) Jobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start 启动调度并阻塞，直到 ctx 被取消
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	n := len(s.jobs)
	s.mu.Unlock()

	s.logger.Info(fmt.Sprintf("CronService starting with %d jobs", n))
	s.cron.Start()
	<-ctx.Done()
	return nil
}

// Stop 停止调度，等待正在执行的任务完成
func (s *Scheduler) Stop(ctx context.Context) error {
	s.logger.Info("CronService stopping")
	stopCtx := s.cron.Stop()

	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 适配器：将框架日志接口适配到 cron 的日志接口
type cronLogger struct {
	logger logging.Logger
}

func newCronLogger(logger logging.Logger) cron.Logger {
	return &cronLogger{logger: logger}
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, convertToFields(keysAndValues)...)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := convertToFields(keysAndValues)
	fields = append(fields, logging.Field{Key: "error", Value: err.Error()})
	l.logger.Error(msg, fields...)
}

func convertToFields(keysAndValues []interface{}) []logging.Field {
	fields := make([]logging.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields = append(fields, logging.Field{Key: fmt.Sprintf("%v", keysAndValues[i]), Value: keysAndValues[i+1]})
	}
	return fields
}
