package database

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/gocrud/compose/config"
	"github.com/gocrud/compose/di"
)

// Builder 数据库配置构建器
type Builder struct {
	configs []DatabaseOptions
	names   map[string]struct{}
	err     error
}

// NewBuilder 创建构建器
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]struct{})}
}

// Add 添加数据库配置
// name: 实例名称
// dialector: GORM 驱动 (e.g. sqlite.Open(dsn))，为 nil 时使用 Driver/DSN
// configure: 可选的配置函数
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*DatabaseOptions)) *Builder {
	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}
	return b.add(*opts)
}

// AddFromConfig 从配置节读取数据库，节下每个键是一个实例名称
func (b *Builder) AddFromConfig(cfg config.Configuration, section string) *Builder {
	var dbs map[string]map[string]any
	if err := cfg.Bind(section, &dbs); err != nil {
		multierr.AppendInto(&b.err, fmt.Errorf("database configuration '%s': %w", section, err))
		return b
	}
	names := make([]string, 0, len(dbs))
	for name := range dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		opts := NewDefaultOptions(name, nil)
		if err := cfg.GetSection(section).Bind(name, opts); err != nil {
			multierr.AppendInto(&b.err, fmt.Errorf("database configuration for '%s': %w", name, err))
			continue
		}
		opts.Name = name
		b.add(*opts)
	}
	return b
}

func (b *Builder) add(opts DatabaseOptions) *Builder {
	if _, exists := b.names[opts.Name]; exists {
		multierr.AppendInto(&b.err, fmt.Errorf("database '%s' already configured", opts.Name))
		return b
	}
	if err := opts.Validate(); err != nil {
		multierr.AppendInto(&b.err, fmt.Errorf("invalid configuration for '%s': %w", opts.Name, err))
		return b
	}
	b.names[opts.Name] = struct{}{}
	b.configs = append(b.configs, opts)
	return b
}

// Register 把每个数据库注册为按名称区分的单例，DefaultName 同时注册为无键服务。
// 连接在首次解析时打开，容器释放时关闭底层 sql.DB。
func (b *Builder) Register(c *di.Container) (*DatabaseFactory, error) {
	if b.err != nil {
		return nil, b.err
	}

	logger := c.Options().Logger.WithCategory("database")
	dbType := di.TypeOf[*gorm.DB]()
	factory := &DatabaseFactory{resolver: c}

	for _, opts := range b.configs {
		opts := opts
		err := di.RegisterFunc[*gorm.DB](c, func() (*gorm.DB, error) {
			return openDatabase(opts, logger)
		}, di.WithName(opts.Name), di.WithSingleton(), di.WithDisposer(closeDatabase))
		if err != nil {
			return nil, fmt.Errorf("database: failed to register '%s': %w", opts.Name, err)
		}
		factory.names = append(factory.names, opts.Name)

		if opts.Name == DefaultName {
			alias := di.StaticFunc(func(db *gorm.DB) *gorm.DB { return db }, di.ArgKey(0, DefaultName))
			if err := c.Register(dbType, alias, di.WithTransient(), di.AsDefault()); err != nil {
				return nil, fmt.Errorf("database: failed to register default instance: %w", err)
			}
		}
	}

	if err := di.RegisterValue(c, factory); err != nil {
		return nil, err
	}
	return factory, nil
}
