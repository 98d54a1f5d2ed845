package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gocrud/compose/logging"
)

// Resolver 由 Container 与 Scope 实现。
type Resolver interface {
	ResolveRequest(req Request) (any, error)
}

// Options 是容器级设置。
type Options struct {
	// DefaultScope 是未指定生命周期时使用的复用策略。
	DefaultScope ScopeType
	// StrictDefaults 为 true 时多个无键候选且都未标记默认会报错，而不是取最后注册的。
	StrictDefaults bool
	Logger         logging.Logger
}

// ContainerOption 配置容器。
type ContainerOption func(*Options)

// WithOptions 整体替换容器设置，空 Logger 保持原值。
func WithOptions(o Options) ContainerOption {
	return func(dst *Options) {
		logger := dst.Logger
		*dst = o
		if dst.Logger == nil {
			dst.Logger = logger
		}
	}
}

// WithDefaultScope 设置默认复用策略。
func WithDefaultScope(scope ScopeType) ContainerOption {
	return func(o *Options) { o.DefaultScope = scope }
}

// WithStrictDefaults 开启严格的默认注册选择。
func WithStrictDefaults() ContainerOption {
	return func(o *Options) { o.StrictDefaults = true }
}

// WithLogger 设置容器日志。
func WithLogger(l logging.Logger) ContainerOption {
	return func(o *Options) { o.Logger = l }
}

// snapshot 是注册表与其计划缓存的组合，整体原子替换。
type snapshot struct {
	planner *planner
	cache   *planCache
}

func newSnapshot(r *Registry, strict bool) *snapshot {
	return &snapshot{planner: &planner{registry: r, strict: strict}, cache: newPlanCache()}
}

func (sn *snapshot) plan(req Request) (*Plan, error) {
	if !comparableKey(req.ServiceKey) {
		// 不可比较的键不能进入缓存
		return sn.planner.plan(req)
	}
	return sn.cache.getOrCreate(req.cacheKey(), func() (*Plan, error) {
		return sn.planner.plan(req)
	})
}

// Container 是依赖组合引擎的句柄。
// 读操作无锁，注册由互斥锁串行化并发布新的快照。
type Container struct {
	mu       sync.Mutex
	nextID   uint64
	state    atomic.Pointer[snapshot]
	root     *Scope
	options  Options
	logger   logging.Logger
	disposed atomic.Bool
}

// NewContainer 创建一个新的容器。
func NewContainer(opts ...ContainerOption) *Container {
	o := Options{DefaultScope: ScopeSingleton}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	c := &Container{options: o, logger: o.Logger.WithCategory("di")}
	c.state.Store(newSnapshot(NewRegistry(), o.StrictDefaults))
	c.root = newScope(c, nil)
	return c
}

// Options 返回容器设置。
func (c *Container) Options() Options { return c.options }

// Register 注册 serviceType 的生产者。producer 为 nil 时使用 WithValue、WithFactory 等选项给出的生产者。
func (c *Container) Register(serviceType reflect.Type, producer *Producer, opts ...Option) error {
	o := newRegisterOptions(c.options.DefaultScope, opts)
	switch {
	case producer == nil:
		producer = o.producer
	case o.producer != nil:
		return &ResolutionError{Err: ErrInvalidProducer, ServiceType: serviceType, ServiceKey: o.key, Detail: "producer given twice"}
	}
	if !comparableKey(o.key) {
		return &ResolutionError{Err: ErrInvalidProducer, ServiceType: serviceType, Detail: fmt.Sprintf("service key of type %T is not comparable", o.key)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed.Load() {
		return &ResolutionError{Err: ErrContainerDisposed, ServiceType: serviceType, ServiceKey: o.key}
	}

	reg, err := newRegistration(c.nextID+1, serviceType, producer, o)
	if err != nil {
		c.logger.Warn("di: registration rejected", logging.Field{Key: "error", Value: err})
		return err
	}
	c.nextID++
	cur := c.state.Load()
	c.state.Store(newSnapshot(cur.planner.registry.Add(reg), c.options.StrictDefaults))

	c.logger.Debug("di: registered", logging.Field{Key: "registration", Value: reg.String()})
	return nil
}

// Registry 返回当前注册表快照。
func (c *Container) Registry() *Registry {
	return c.state.Load().planner.registry
}

// Resolve 从根作用域解析服务。
func (c *Container) Resolve(serviceType reflect.Type, serviceKey any, ifUnresolved IfUnresolved) (any, error) {
	return c.root.Resolve(serviceType, serviceKey, ifUnresolved)
}

// ResolveRequest 从根作用域解析请求。
func (c *Container) ResolveRequest(req Request) (any, error) {
	return c.root.ResolveRequest(req)
}

// Invoke 在根作用域中调用 fn。
func (c *Container) Invoke(fn any, args ...Arg) ([]any, error) {
	return c.root.Invoke(fn, args...)
}

// Plan 返回请求的计划，不执行。
func (c *Container) Plan(req Request) (*Plan, error) {
	return c.state.Load().plan(req)
}

// CacheStats 返回当前快照的计划缓存统计。
func (c *Container) CacheStats() CacheStats {
	return c.state.Load().cache.stats()
}

// RootScope 返回根作用域。
func (c *Container) RootScope() *Scope { return c.root }

// OpenScope 打开一个子作用域，parent 为 nil 时挂在根作用域下。
func (c *Container) OpenScope(parent *Scope) *Scope {
	if parent == nil {
		parent = c.root
	}
	s := newScope(c, parent)
	if !parent.addChild(s) {
		// 父作用域已释放，新作用域同样不可用
		s.disposed.Store(true)
	}
	c.logger.Trace("di: scope opened", logging.Field{Key: "scope", Value: s.id}, logging.Field{Key: "parent", Value: parent.id})
	return s
}

// CloseScope 释放作用域。
func (c *Container) CloseScope(s *Scope) error {
	return s.Dispose()
}

// Dispose 释放根作用域及其所有子作用域，之后不再接受注册。
func (c *Container) Dispose() error {
	c.mu.Lock()
	c.disposed.Store(true)
	c.mu.Unlock()
	return c.root.Dispose()
}
