package hosting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

var hostedServiceType = di.TypeOf[HostedService]()

// ErrHostStarted 重复启动
var ErrHostStarted = errors.New("hosting: host already started")

// HostOptions 主机选项
type HostOptions struct {
	// ShutdownTimeout Run 在退出时给 Stop 的时间，默认 5 秒
	ShutdownTimeout time.Duration
	// ValidateOnStart 启动前检查所有注册是否可以解析
	ValidateOnStart bool
	// WarmUp 启动前创建所有单例
	WarmUp bool
}

// Host 托管容器中注册的所有 HostedService，停止时释放容器
type Host struct {
	container *di.Container
	opts      HostOptions
	logger    logging.Logger

	mu       sync.Mutex
	onStart  []func(context.Context) error
	onStop   []func(context.Context) error
	services []HostedService
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
	stopped  bool

	failOnce sync.Once
	failed   chan struct{}
	failErr  error
}

// NewHost 创建主机
func NewHost(c *di.Container, opts HostOptions) *Host {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	return &Host{
		container: c,
		opts:      opts,
		logger:    c.Options().Logger.WithCategory("hosting"),
		failed:    make(chan struct{}),
	}
}

// Container 返回主机使用的容器
func (h *Host) Container() *di.Container { return h.container }

// OnStart 注册启动钩子，在托管服务启动前按注册顺序执行
func (h *Host) OnStart(fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStart = append(h.onStart, fn)
}

// OnStop 注册停止钩子，在托管服务停止后倒序执行
func (h *Host) OnStop(fn func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onStop = append(h.onStop, fn)
}

// Start 解析所有托管服务，每个服务在独立的 goroutine 中运行
func (h *Host) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return ErrHostStarted
	}
	h.started = true

	if h.opts.ValidateOnStart {
		if err := h.container.Validate(); err != nil {
			return fmt.Errorf("hosting: validate container: %w", err)
		}
	}
	if h.opts.WarmUp {
		if err := h.container.WarmUp(); err != nil {
			return fmt.Errorf("hosting: warm up container: %w", err)
		}
	}

	for _, fn := range h.onStart {
		if err := fn(ctx); err != nil {
			return err
		}
	}

	services, err := di.Resolve[[]HostedService](h.container)
	if err != nil {
		return fmt.Errorf("hosting: resolve hosted services: %w", err)
	}
	h.services = services
	if registered := len(h.container.Registry().All(hostedServiceType)); len(services) < registered {
		// 集合解析会跳过依赖缺失的服务
		for _, err := range multierr.Errors(h.container.ValidateType(hostedServiceType)) {
			h.logger.Warn("Hosted service skipped",
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	// 服务的生命周期伴随主机，而不是 Start 的调用方
	serviceCtx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	h.logger.Info(fmt.Sprintf("Starting %d hosted services", len(services)))
	for i, svc := range services {
		h.wg.Add(1)
		go func(index int, svc HostedService) {
			defer h.wg.Done()
			err := svc.Start(serviceCtx)
			switch {
			case err == nil:
				h.logger.Debug(fmt.Sprintf("Hosted service %d completed", index+1))
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				h.logger.Debug(fmt.Sprintf("Hosted service %d stopped (context done)", index+1))
			default:
				h.logger.Error(fmt.Sprintf("Hosted service %d error", index+1),
					logging.Field{Key: "error", Value: err.Error()})
				h.fail(fmt.Errorf("hosting: service %T: %w", svc, err))
			}
		}(i, svc)
	}
	return nil
}

func (h *Host) fail(err error) {
	h.failOnce.Do(func() {
		h.failErr = err
		close(h.failed)
	})
}

// Done 当某个托管服务异常退出时关闭
func (h *Host) Done() <-chan struct{} {
	return h.failed
}

// Err 返回导致 Done 关闭的错误
func (h *Host) Err() error {
	select {
	case <-h.failed:
		return h.failErr
	default:
		return nil
	}
}

// Stop 倒序停止托管服务，执行停止钩子并释放容器。多次调用只生效一次。
func (h *Host) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return nil
	}
	h.stopped = true

	var err error
	if h.cancel != nil {
		h.cancel()
	}

	h.logger.Info(fmt.Sprintf("Stopping %d hosted services", len(h.services)))
	for i := len(h.services) - 1; i >= 0; i-- {
		if serr := h.services[i].Stop(ctx); serr != nil {
			h.logger.Error(fmt.Sprintf("Failed to stop hosted service %d", i+1),
				logging.Field{Key: "error", Value: serr.Error()})
			multierr.AppendInto(&err, serr)
		}
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		multierr.AppendInto(&err, fmt.Errorf("hosting: waiting for hosted services: %w", ctx.Err()))
	}

	for i := len(h.onStop) - 1; i >= 0; i-- {
		multierr.AppendInto(&err, h.onStop[i](ctx))
	}

	multierr.AppendInto(&err, h.container.Dispose())
	h.logger.Info("All hosted services stopped")
	return err
}

// Run 启动主机并阻塞，直到 ctx 结束或某个托管服务失败，然后在 ShutdownTimeout 内停止
func (h *Host) Run(ctx context.Context) error {
	if err := h.Start(ctx); err != nil {
		return multierr.Append(err, h.Stop(context.Background()))
	}

	select {
	case <-ctx.Done():
	case <-h.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
	defer cancel()
	return multierr.Append(h.Err(), h.Stop(stopCtx))
}
