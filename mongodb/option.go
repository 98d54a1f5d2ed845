package mongodb

import (
	"github.com/gocrud/compose/config"
	"github.com/gocrud/compose/di"
)

// BuilderOption 用于配置 MongoDB Builder
type BuilderOption func(*Builder)

// WithClient 添加 MongoDB 客户端配置
func WithClient(name string, uri string, opts ...func(*MongoOptions)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, uri, func(o *MongoOptions) {
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

// New 启用 MongoDB 能力
func New(c *di.Container, opts ...BuilderOption) (*MongoFactory, error) {
	builder := NewBuilder()
	for _, opt := range opts {
		opt(builder)
	}
	return builder.Register(c)
}
