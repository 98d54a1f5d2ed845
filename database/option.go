package database

import (
	"gorm.io/gorm"

	"github.com/gocrud/compose/config"
	"github.com/gocrud/compose/di"
)

// BuilderOption 用于配置 Database Builder
type BuilderOption func(*Builder)

// WithDatabase 添加数据库配置
func WithDatabase(name string, dialector gorm.Dialector, opts ...func(*DatabaseOptions)) BuilderOption {
	return func(b *Builder) {
		b.Add(name, dialector, func(o *DatabaseOptions) {
			for _, opt := range opts {
				opt(o)
			}
		})
	}
}

// WithAutoMigrate 打开连接后自动迁移模型
func WithAutoMigrate(models ...any) func(*DatabaseOptions) {
	return func(o *DatabaseOptions) {
		o.AutoMigrate = append(o.AutoMigrate, models...)
	}
}

// WithConfig 从配置节添加数据库
func WithConfig(cfg config.Configuration, section string) BuilderOption {
	return func(b *Builder) {
		b.AddFromConfig(cfg, section)
	}
}

// New 启用数据库能力
func New(c *di.Container, opts ...BuilderOption) (*DatabaseFactory, error) {
	builder := NewBuilder()
	for _, opt := range opts {
		opt(builder)
	}
	return builder.Register(c)
}
