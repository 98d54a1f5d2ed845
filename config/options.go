package config

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gocrud/compose/di"
)

// Option 静态配置选项（容器生命周期内不变）
type Option[T any] interface {
	Value() T
}

// OptionSnapshot 快照配置选项（作用域内不变）
// 每个作用域第一次解析时获取配置快照，同一作用域内保持不变
type OptionSnapshot[T any] interface {
	Value() T
}

// OptionMonitor 监听配置选项，总是返回最新的配置值
type OptionMonitor[T any] interface {
	Value() T
}

// OptionsCache 配置缓存，配置重新加载时自动更新
type OptionsCache[T any] struct {
	config  Configuration
	section string
	current T
	mu      sync.RWMutex
}

// NewOptionsCache 创建配置缓存，节不存在时使用零值
func NewOptionsCache[T any](config Configuration, section string) *OptionsCache[T] {
	cache := &OptionsCache[T]{
		config:  config,
		section: section,
	}
	_ = cache.reload()

	if rc, ok := config.(interface{ OnReload(func()) }); ok {
		rc.OnReload(func() {
			_ = cache.reload()
		})
	}
	return cache
}

func (c *OptionsCache[T]) reload() error {
	newValue, err := Load[T](c.config, c.section)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.current = newValue
	c.mu.Unlock()
	return nil
}

// Get 获取当前配置值
func (c *OptionsCache[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Snapshot 创建当前配置的深拷贝
func (c *OptionsCache[T]) Snapshot() T {
	current := c.Get()
	data, err := json.Marshal(current)
	if err != nil {
		return current
	}
	var snapshot T
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return current
	}
	return snapshot
}

type option[T any] struct{ value T }

func (o *option[T]) Value() T { return o.value }

// NewOption 创建静态配置选项
func NewOption[T any](value T) Option[T] {
	return &option[T]{value: value}
}

type optionSnapshot[T any] struct{ snapshot T }

func (o *optionSnapshot[T]) Value() T { return o.snapshot }

// NewOptionSnapshot 创建快照配置选项
func NewOptionSnapshot[T any](snapshot T) OptionSnapshot[T] {
	return &optionSnapshot[T]{snapshot: snapshot}
}

type optionMonitor[T any] struct{ cache *OptionsCache[T] }

func (o *optionMonitor[T]) Value() T { return o.cache.Get() }

// NewOptionMonitor 创建监听配置选项
func NewOptionMonitor[T any](cache *OptionsCache[T]) OptionMonitor[T] {
	return &optionMonitor[T]{cache: cache}
}

// AddOptions 把配置节 section 以三种形式注册到容器：
// Option[T] 单例，OptionMonitor[T] 单例，OptionSnapshot[T] 每个作用域一份。
func AddOptions[T any](c *di.Container, cfg Configuration, section string) error {
	if _, err := Load[T](cfg, section); err != nil {
		return fmt.Errorf("config: options %v: %w", di.TypeOf[T](), err)
	}
	err := di.RegisterFunc[*OptionsCache[T]](c, func() *OptionsCache[T] {
		return NewOptionsCache[T](cfg, section)
	}, di.WithSingleton())
	if err != nil {
		return err
	}
	err = di.RegisterFunc[Option[T]](c, func(cache *OptionsCache[T]) Option[T] {
		return NewOption(cache.Get())
	}, di.WithSingleton())
	if err != nil {
		return err
	}
	if err := di.RegisterFunc[OptionMonitor[T]](c, NewOptionMonitor[T], di.WithSingleton()); err != nil {
		return err
	}
	return di.RegisterFunc[OptionSnapshot[T]](c, func(cache *OptionsCache[T]) OptionSnapshot[T] {
		return NewOptionSnapshot(cache.Snapshot())
	}, di.WithScoped())
}
