package mongodb

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/multierr"

	"github.com/gocrud/compose/config"
	"github.com/gocrud/compose/di"
)

// Builder MongoDB 配置构建器
type Builder struct {
	configs []MongoOptions
	names   map[string]struct{}
	err     error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// Add 添加客户端配置
func (b *Builder) Add(name string, uri string, configure func(*MongoOptions)) *Builder {
	opts := NewDefaultOptions(name, uri)
	if configure != nil {
		configure(opts)
	}
	return b.add(*opts)
}

// AddFromConfig 从配置节读取客户端，节下每个键是一个客户端名称
func (b *Builder) AddFromConfig(cfg config.Configuration, section string) *Builder {
	var clients map[string]map[string]any
	if err := cfg.Bind(section, &clients); err != nil {
		multierr.AppendInto(&b.err, fmt.Errorf("mongo configuration '%s': %w", section, err))
		return b
	}
	names := make([]string, 0, len(clients))
	for name := range clients {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts := NewDefaultOptions(name, "")
		if err := cfg.GetSection(section).Bind(name, opts); err != nil {
			multierr.AppendInto(&b.err, fmt.Errorf("mongo configuration for '%s': %w", name, err))
			continue
		}
		opts.Name = name
		b.add(*opts)
	}
	return b
}

func (b *Builder) add(opts MongoOptions) *Builder {
	if _, exists := b.names[opts.Name]; exists {
		multierr.AppendInto(&b.err, fmt.Errorf("mongo client '%s' already configured", opts.Name))
		return b
	}
	if err := opts.Validate(); err != nil {
		multierr.AppendInto(&b.err, fmt.Errorf("invalid mongo configuration for '%s': %w", opts.Name, err))
		return b
	}
	b.names[opts.Name] = struct{}{}
	b.configs = append(b.configs, opts)
	return b
}

// Register 把每个客户端注册为按名称区分的单例，容器释放时断开连接。
// 配置了 Database 的客户端同时注册同名的 *mongo.Database，接收者为同名客户端。
func (b *Builder) Register(c *di.Container) (*MongoFactory, error) {
	if b.err != nil {
		return nil, b.err
	}

	logger := c.Options().Logger.WithCategory("mongodb")
	clientType := di.TypeOf[*mongo.Client]()
	factory := &MongoFactory{resolver: c}

	for _, opts := range b.configs {
		opts := opts
		err := di.RegisterFunc[*mongo.Client](c, func() (*mongo.Client, error) {
			return newClient(opts, logger)
		}, di.WithName(opts.Name), di.WithSingleton(), di.WithDisposer(disconnect(opts.Timeout)))
		if err != nil {
			return nil, fmt.Errorf("mongodb: failed to register client '%s': %w", opts.Name, err)
		}
		factory.names = append(factory.names, opts.Name)

		if opts.Database != "" {
			// Database(name string, opts ...) 的变参绑定为空
			producer := di.InstanceFunc((*mongo.Client).Database,
				di.ArgKey(0, opts.Name), di.ArgValue(1, opts.Database), di.ArgValue(2, nil))
			if err := c.Register(di.TypeOf[*mongo.Database](), producer, di.WithName(opts.Name), di.WithSingleton()); err != nil {
				return nil, fmt.Errorf("mongodb: failed to register database '%s': %w", opts.Database, err)
			}
		}

		if opts.Name == DefaultName {
			alias := di.StaticFunc(func(client *mongo.Client) *mongo.Client { return client }, di.ArgKey(0, DefaultName))
			if err := c.Register(clientType, alias, di.WithTransient(), di.AsDefault()); err != nil {
				return nil, fmt.Errorf("mongodb: failed to register default client: %w", err)
			}
		}
	}

	if err := di.RegisterValue(c, factory); err != nil {
		return nil, err
	}
	return factory, nil
}
