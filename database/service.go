package database

import (
	"fmt"
	"sort"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

// DefaultName 默认数据库名称，同时注册为无键的 *gorm.DB
const DefaultName = "default"

// DatabaseOptions 数据库配置选项
type DatabaseOptions struct {
	Name         string         `json:"name"`
	Driver       string         `json:"driver"` // 未指定 Dialector 时使用，目前支持 sqlite
	DSN          string         `json:"dsn"`
	Dialector    gorm.Dialector `json:"-"`
	GormConfig   *gorm.Config   `json:"-"`
	MaxIdleConns int            `json:"max_idle_conns"`
	MaxOpenConns int            `json:"max_open_conns"`
	MaxLifetime  time.Duration  `json:"max_lifetime"`
	AutoMigrate  []any          `json:"-"` // 需要自动迁移的模型
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, dialector gorm.Dialector) *DatabaseOptions {
	return &DatabaseOptions{
		Name:         name,
		Dialector:    dialector,
		MaxIdleConns: 10,
		MaxOpenConns: 100,
		MaxLifetime:  time.Hour,
	}
}

// Validate 验证配置并在需要时由 Driver/DSN 生成 Dialector
func (o *DatabaseOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if o.Dialector != nil {
		return nil
	}
	switch o.Driver {
	case "sqlite":
		if o.DSN == "" {
			return fmt.Errorf("database dsn is required")
		}
		o.Dialector = sqlite.Open(o.DSN)
		return nil
	case "":
		return fmt.Errorf("database dialector is required")
	default:
		return fmt.Errorf("unsupported database driver %q", o.Driver)
	}
}

// openDatabase 打开连接、配置连接池并执行自动迁移
func openDatabase(opts DatabaseOptions, logger logging.Logger) (*gorm.DB, error) {
	gormConfig := opts.GormConfig
	if gormConfig == nil {
		gormConfig = &gorm.Config{Logger: gormlogger.Discard}
	}

	db, err := gorm.Open(opts.Dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", opts.Name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB for '%s': %w", opts.Name, err)
	}
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(opts.MaxLifetime)

	if len(opts.AutoMigrate) > 0 {
		if err := db.AutoMigrate(opts.AutoMigrate...); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("auto migrate failed for '%s': %w", opts.Name, err)
		}
	}

	logger.Info("Database opened",
		logging.Field{Key: "name", Value: opts.Name},
		logging.Field{Key: "dialector", Value: opts.Dialector.Name()})
	return db, nil
}

// closeDatabase 关闭 *gorm.DB 底层的 sql.DB
func closeDatabase(v any) error {
	db, ok := v.(*gorm.DB)
	if !ok {
		return fmt.Errorf("database: unexpected instance %T", v)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DatabaseFactory 按名称获取容器中的数据库
type DatabaseFactory struct {
	resolver di.Resolver
	names    []string
}

// Get 获取指定名称的数据库，首次获取时打开
func (f *DatabaseFactory) Get(name string) (*gorm.DB, error) {
	db, err := di.ResolveKeyed[*gorm.DB](f.resolver, name)
	if err != nil {
		return nil, fmt.Errorf("database '%s': %w", name, err)
	}
	return db, nil
}

// Names 返回所有数据库名称
func (f *DatabaseFactory) Names() []string {
	names := append([]string(nil), f.names...)
	sort.Strings(names)
	return names
}
