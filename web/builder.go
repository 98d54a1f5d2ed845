package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

// Builder Web 主机构建器（基于 Gin）
type Builder struct {
	container *di.Container
	logger    logging.Logger
	port      int
	engine    *gin.Engine
	err       error
}

// NewBuilder 创建 Web 构建器，每个请求在独立的作用域中处理
func NewBuilder(c *di.Container) *Builder {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(ScopeMiddleware(c))

	return &Builder{
		container: c,
		logger:    c.Options().Logger.WithCategory("web"),
		port:      8080,
		engine:    engine,
	}
}

// UsePort 设置端口，0 表示由系统分配
func (b *Builder) UsePort(port int) *Builder {
	b.port = port
	return b
}

// Use 使用全局中间件
func (b *Builder) Use(middleware ...gin.HandlerFunc) *Builder {
	b.engine.Use(middleware...)
	return b
}

// Controller 简单的控制器接口标记
type Controller interface {
	// MountRoutes 注册路由
	MountRoutes(router gin.IRouter)
}

// AddControllers 把控制器注册到容器（单例），Host 启动时统一解析并挂载路由。
// 传入参数可以是：
// 1. 控制器的构造函数 (例如 NewUserController) -> 构造函数注入
// 2. 控制器实例指针或 reflect.Type -> 按 di 标签做字段注入
func (b *Builder) AddControllers(controllers ...any) *Builder {
	controllerType := di.TypeOf[Controller]()
	for _, item := range controllers {
		var producer *di.Producer
		switch v := item.(type) {
		case reflect.Type:
			producer = di.StructOf(v)
		default:
			if reflect.TypeOf(item).Kind() == reflect.Func {
				producer = di.StaticFunc(item)
			} else {
				producer = di.StructOf(reflect.TypeOf(item))
			}
		}
		if err := b.container.Register(controllerType, producer, di.WithSingleton()); err != nil {
			multierr.AppendInto(&b.err, fmt.Errorf("web: register controller %T: %w", item, err))
		}
	}
	return b
}

// Get 注册 GET 路由
func (b *Builder) Get(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.GET(path, handlers...)
	return b
}

// Post 注册 POST 路由
func (b *Builder) Post(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.POST(path, handlers...)
	return b
}

// Put 注册 PUT 路由
func (b *Builder) Put(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.PUT(path, handlers...)
	return b
}

// Delete 注册 DELETE 路由
func (b *Builder) Delete(path string, handlers ...gin.HandlerFunc) *Builder {
	b.engine.DELETE(path, handlers...)
	return b
}

// Group 创建路由组
func (b *Builder) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return b.engine.Group(relativePath, handlers...)
}

// NoRoute 处理 404
func (b *Builder) NoRoute(handlers ...gin.HandlerFunc) *Builder {
	b.engine.NoRoute(handlers...)
	return b
}

// Engine 获取 Gin 引擎（用于高级定制）
func (b *Builder) Engine() *gin.Engine {
	return b.engine
}

// Build 构建 Web 主机，返回注册控制器时的错误
func (b *Builder) Build() (*Host, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &Host{
		port:      b.port,
		engine:    b.engine,
		container: b.container,
		server:    &http.Server{Handler: b.engine},
		logger:    b.logger,
		ready:     make(chan struct{}),
	}, nil
}

// Host Web 主机，实现 hosting.HostedService
type Host struct {
	port      int
	engine    *gin.Engine
	server    *http.Server
	logger    logging.Logger
	container *di.Container
	ready     chan struct{}
}

// Ready 在开始监听后关闭
func (h *Host) Ready() <-chan struct{} {
	return h.ready
}

// Address 获取监听地址，仅在 Ready 关闭后有效
func (h *Host) Address() string {
	return h.server.Addr
}

// Start 挂载控制器路由并开始监听。此方法会阻塞，直到服务退出。
func (h *Host) Start(ctx context.Context) error {
	if err := h.mapControllers(); err != nil {
		return fmt.Errorf("web: failed to map controllers: %w", err)
	}

	addr := fmt.Sprintf(":%d", h.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("web: failed to listen on %s: %w", addr, err)
	}
	h.server.Addr = ln.Addr().String()
	h.server.BaseContext = func(net.Listener) context.Context { return ctx }
	close(h.ready)

	h.logger.Info("Web host started", logging.Field{Key: "address", Value: h.server.Addr})

	if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
		h.logger.Error("Web host error", logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	return nil
}

// Stop 停止 Web 主机，等待处理中的请求完成
func (h *Host) Stop(ctx context.Context) error {
	h.logger.Info("Stopping web host")
	if err := h.server.Shutdown(ctx); err != nil {
		h.logger.Error("Failed to shutdown web host gracefully",
			logging.Field{Key: "error", Value: err.Error()})
		return err
	}
	h.logger.Info("Web host stopped")
	return nil
}

// mapControllers 从容器解析所有控制器并注册路由
func (h *Host) mapControllers() error {
	controllers, err := di.Resolve[[]Controller](h.container)
	if err != nil {
		return err
	}
	for _, ctrl := range controllers {
		ctrl.MountRoutes(h.engine)
		h.logger.Debug("Mapped controller routes", logging.Field{Key: "controller", Value: fmt.Sprintf("%T", ctrl)})
	}
	return nil
}
