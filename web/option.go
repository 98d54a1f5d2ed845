package web

import (
	"github.com/gin-gonic/gin"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/hosting"
)

// BuilderOption 用于配置 Web Builder
type BuilderOption func(*Builder)

// WithPort 设置端口
func WithPort(port int) BuilderOption {
	return func(b *Builder) {
		b.UsePort(port)
	}
}

// WithControllers 添加控制器
func WithControllers(controllers ...any) BuilderOption {
	return func(b *Builder) {
		b.AddControllers(controllers...)
	}
}

// WithMiddleware 添加全局中间件
func WithMiddleware(middleware ...gin.HandlerFunc) BuilderOption {
	return func(b *Builder) {
		b.Use(middleware...)
	}
}

// WithRoutes 直接在引擎上注册路由
func WithRoutes(fn func(r gin.IRouter)) BuilderOption {
	return func(b *Builder) {
		fn(b.engine)
	}
}

// New 启用 Web 能力：构建 Host，并把它注册为容器中的托管服务和 *Host 单例
func New(c *di.Container, opts ...BuilderOption) (*Host, error) {
	builder := NewBuilder(c)
	for _, opt := range opts {
		opt(builder)
	}

	host, err := builder.Build()
	if err != nil {
		return nil, err
	}
	if err := di.RegisterValue(c, host); err != nil {
		return nil, err
	}
	if err := di.RegisterValue[hosting.HostedService](c, host); err != nil {
		return nil, err
	}
	return host, nil
}
