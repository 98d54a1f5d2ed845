package redis

import (
	"github.com/gocrud/compose/config"
	"github.com/gocrud/compose/di"
)

// BuilderOption 用于配置 Redis Builder
type BuilderOption func(*Builder)

// WithClient 添加 Redis 客户端配置
func WithClient(name string, opts ...func(*ClientOptions)) BuilderOption {
	return func(b *Builder) {
		b.AddClient(name, func(o *ClientOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// WithConfig 从配置节添加客户端
func WithConfig(cfg config.Configuration, section string) BuilderOption {
	return func(b *Builder) {
		b.AddFromConfig(cfg, section)
	}
}

// New 启用 Redis 能力
func New(c *di.Container, opts ...BuilderOption) (*ClientFactory, error) {
	builder := NewBuilder()
	for _, opt := range opts {
		opt(builder)
	}
	return builder.Register(c)
}
