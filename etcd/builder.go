package etcd

import (
	"fmt"
	"sort"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/multierr"

	"github.com/gocrud/compose/config"
	"github.com/gocrud/compose/di"
)

// Builder etcd 客户端配置构建器
type Builder struct {
	configs []EtcdClientOptions
	names   map[string]struct{}
	err     error
}

// NewBuilder 创建 etcd 构建器
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}
	return b.add(*opts)
}

// AddFromConfig 从配置节读取客户端，节下每个键是一个客户端名称
func (b *Builder) AddFromConfig(cfg config.Configuration, section string) *Builder {
	var clients map[string]map[string]any
	if err := cfg.Bind(section, &clients); err != nil {
		multierr.AppendInto(&b.err, fmt.Errorf("etcd configuration '%s': %w", section, err))
		return b
	}
	names := make([]string, 0, len(clients))
	for name := range clients {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts := NewDefaultOptions(name)
		if err := cfg.GetSection(section).Bind(name, opts); err != nil {
			multierr.AppendInto(&b.err, fmt.Errorf("etcd configuration for '%s': %w", name, err))
			continue
		}
		opts.Name = name
		b.add(*opts)
	}
	return b
}

func (b *Builder) add(opts EtcdClientOptions) *Builder {
	if _, exists := b.names[opts.Name]; exists {
		multierr.AppendInto(&b.err, fmt.Errorf("etcd client '%s' already configured", opts.Name))
		return b
	}
	if err := opts.Validate(); err != nil {
		multierr.AppendInto(&b.err, fmt.Errorf("invalid etcd configuration for '%s': %w", opts.Name, err))
		return b
	}
	b.names[opts.Name] = struct{}{}
	b.configs = append(b.configs, opts)
	return b
}

// Register 把每个客户端注册为按名称区分的单例，DefaultName 同时注册为无键服务
func (b *Builder) Register(c *di.Container) (*EtcdClientFactory, error) {
	if b.err != nil {
		return nil, b.err
	}

	logger := c.Options().Logger.WithCategory("etcd")
	clientType := di.TypeOf[*clientv3.Client]()
	factory := &EtcdClientFactory{resolver: c}

	for _, opts := range b.configs {
		opts := opts
		err := di.RegisterFunc[*clientv3.Client](c, func() (*clientv3.Client, error) {
			return newClient(opts, logger)
		}, di.WithName(opts.Name), di.WithSingleton())
		if err != nil {
			return nil, fmt.Errorf("etcd: failed to register client '%s': %w", opts.Name, err)
		}
		factory.names = append(factory.names, opts.Name)

		if opts.Name == DefaultName {
			alias := di.StaticFunc(func(client *clientv3.Client) *clientv3.Client { return client }, di.ArgKey(0, DefaultName))
			if err := c.Register(clientType, alias, di.WithTransient(), di.AsDefault()); err != nil {
				return nil, fmt.Errorf("etcd: failed to register default client: %w", err)
			}
		}
	}

	if err := di.RegisterValue(c, factory); err != nil {
		return nil, err
	}
	return factory, nil
}
