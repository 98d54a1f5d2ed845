package redis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

// DefaultName 默认客户端名称，同时注册为无键的 *redis.Client
const DefaultName = "default"

// ClientOptions Redis 客户端配置选项
type ClientOptions struct {
	Name         string        `json:"name"`           // 客户端名称
	Addr         string        `json:"addr"`           // Redis 服务器地址 (host:port)
	Password     string        `json:"password"`       // 密码（可选）
	DB           int           `json:"db"`             // 数据库编号
	DialTimeout  time.Duration `json:"dial_timeout"`   // 连接超时时间
	ReadTimeout  time.Duration `json:"read_timeout"`   // 读取超时时间
	WriteTimeout time.Duration `json:"write_timeout"`  // 写入超时时间
	PoolSize     int           `json:"pool_size"`      // 连接池大小
	MinIdleConns int           `json:"min_idle_conns"` // 最小空闲连接数
	MaxRetries   int           `json:"max_retries"`    // 最大重试次数
	PingOnCreate bool          `json:"ping_on_create"` // 创建时检测连接
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *ClientOptions {
	return &ClientOptions{
		Name:         name,
		Addr:         "localhost:6379",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
	}
}

// Validate 验证配置
func (o *ClientOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("redis client name is required")
	}
	if o.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if o.DB < 0 {
		return fmt.Errorf("redis database number must be non-negative")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("redis dial timeout must be positive")
	}
	return nil
}

// newClient 创建客户端，客户端由容器在释放时关闭
func newClient(opts ClientOptions, logger logging.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		MaxRetries:   opts.MaxRetries,
	})

	if opts.PingOnCreate {
		ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis '%s': %w", opts.Name, err)
		}
	}

	logger.Info("redis client created",
		logging.Field{Key: "name", Value: opts.Name},
		logging.Field{Key: "addr", Value: opts.Addr},
		logging.Field{Key: "db", Value: opts.DB})
	return client, nil
}

// ClientFactory 按名称获取容器中的 Redis 客户端
type ClientFactory struct {
	resolver di.Resolver
	names    []string
}

// Get 获取指定名称的 Redis 客户端，首次获取时创建
func (f *ClientFactory) Get(name string) (*redis.Client, error) {
	client, err := di.ResolveKeyed[*redis.Client](f.resolver, name)
	if err != nil {
		return nil, fmt.Errorf("redis client '%s': %w", name, err)
	}
	return client, nil
}

// Names 返回所有客户端名称
func (f *ClientFactory) Names() []string {
	names := append([]string(nil), f.names...)
	sort.Strings(names)
	return names
}
