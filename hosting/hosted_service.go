package hosting

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/multierr"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

// HostedService 托管服务接口（类似于 .NET Core IHostedService）
// 框架会自动在 goroutine 中调用 Start，用户无需自己启动 goroutine
type HostedService interface {
	// Start 启动服务。该方法应阻塞执行，直到 context 被取消或发生错误。
	Start(ctx context.Context) error

	// Stop 执行优雅关闭逻辑。
	// 注意：当 Start 的 context 被取消时，服务应自动停止。
	Stop(ctx context.Context) error
}

// AddHostedService 把 T 注册为托管服务（单例，按 di 标签注入字段）
func AddHostedService[T HostedService](c *di.Container, opts ...di.Option) error {
	return di.Register[HostedService](c, append([]di.Option{di.Use[T](), di.WithSingleton()}, opts...)...)
}

// AddHostedServiceFunc 用构造函数注册托管服务，参数由容器注入
func AddHostedServiceFunc(c *di.Container, ctor any, opts ...di.Option) error {
	return di.RegisterFunc[HostedService](c, ctor, append([]di.Option{di.WithSingleton()}, opts...)...)
}

// WorkerFunc 定义简单的后台任务函数
// 这是一个阻塞函数，通过 ctx.Done() 判断退出。
type WorkerFunc func(ctx context.Context) error

func (fn WorkerFunc) Start(ctx context.Context) error { return fn(ctx) }

func (fn WorkerFunc) Stop(context.Context) error { return nil }

// AddWorker 将一个阻塞的函数注册为托管服务
func AddWorker(c *di.Container, fn WorkerFunc, opts ...di.Option) error {
	return di.RegisterValue[HostedService](c, fn, opts...)
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// InvokeInScope 在新的作用域中调用 fn 并在返回前释放该作用域。
// fn 的第一个参数如果是 context.Context，则绑定为 ctx，其余参数从作用域解析。
func InvokeInScope(ctx context.Context, c *di.Container, fn any) (err error) {
	var args []di.Arg
	if t := reflect.TypeOf(fn); t != nil && t.Kind() == reflect.Func && t.NumIn() > 0 && t.In(0) == contextType {
		args = append(args, di.ArgValue(0, ctx))
	}
	scope := c.OpenScope(nil)
	defer func() {
		multierr.AppendInto(&err, scope.Dispose())
	}()
	_, err = scope.Invoke(fn, args...)
	return err
}

// BackgroundService 后台服务基类
type BackgroundService struct {
	name   string
	logger logging.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBackgroundService 创建后台服务
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start 阻塞直到停止信号或上下文取消
func (s *BackgroundService) Start(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("BackgroundService '%s' starting", s.name))
	defer s.Done()

	select {
	case <-s.stopCh:
		s.logger.Info(fmt.Sprintf("BackgroundService '%s' stopped by signal", s.name))
	case <-ctx.Done():
		s.logger.Info(fmt.Sprintf("BackgroundService '%s' context cancelled", s.name))
	}
	return nil
}

// Stop 发出停止信号并等待服务结束
func (s *BackgroundService) Stop(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("BackgroundService '%s' stopping", s.name))
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	select {
	case <-s.doneCh:
		s.logger.Info(fmt.Sprintf("BackgroundService '%s' stopped gracefully", s.name))
	case <-ctx.Done():
		s.logger.Warn(fmt.Sprintf("BackgroundService '%s' stop timeout", s.name))
		return ctx.Err()
	}
	return nil
}

// StopChan 返回停止通道，用于在 select 中监听
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}

// Done 标记服务完成
func (s *BackgroundService) Done() {
	select {
	case <-s.doneCh:
	default:
		close(s.doneCh)
	}
}

// TimedHostedService 定时托管服务，每次执行都在独立的作用域中调用任务
type TimedHostedService struct {
	*BackgroundService
	container *di.Container
	interval  time.Duration
	task      any
}

// NewTimedHostedService 创建定时托管服务。
// task 是任意函数，第一个参数可以是 context.Context，其余参数从每次执行的作用域解析。
func NewTimedHostedService(name string, interval time.Duration, c *di.Container, task any) *TimedHostedService {
	return &TimedHostedService{
		BackgroundService: NewBackgroundService(name, c.Options().Logger.WithCategory("hosting")),
		container:         c,
		interval:          interval,
		task:              task,
	}
}

// Start 启动定时服务
func (s *TimedHostedService) Start(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("TimedHostedService '%s' running with interval %v", s.name, s.interval))
	defer s.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.logger.Debug(fmt.Sprintf("TimedHostedService '%s' executing task", s.name))
			if err := InvokeInScope(ctx, s.container, s.task); err != nil {
				s.logger.Error(fmt.Sprintf("TimedHostedService '%s' task failed", s.name),
					logging.Field{Key: "error", Value: err.Error()})
			}
		case <-s.stopCh:
			s.logger.Info(fmt.Sprintf("TimedHostedService '%s' stopped", s.name))
			return nil
		case <-ctx.Done():
			s.logger.Info(fmt.Sprintf("TimedHostedService '%s' context cancelled", s.name))
			return ctx.Err()
		}
	}
}
