package mongodb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

// DefaultName 默认客户端名称，同时注册为无键的 *mongo.Client
const DefaultName = "default"

// MongoOptions MongoDB 客户端配置选项
type MongoOptions struct {
	Name        string        `json:"name"`
	Uri         string        `json:"uri"`
	Database    string        `json:"database"` // 非空时同时注册同名的 *mongo.Database
	Username    string        `json:"username"`
	Password    string        `json:"password"`
	MaxPoolSize uint64        `json:"max_pool_size"`
	MinPoolSize uint64        `json:"min_pool_size"`
	Timeout     time.Duration `json:"timeout"`
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string, uri string) *MongoOptions {
	return &MongoOptions{
		Name:        name,
		Uri:         uri,
		MaxPoolSize: 100,
		MinPoolSize: 5,
		Timeout:     10 * time.Second,
	}
}

// Validate 验证配置
func (o *MongoOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("mongo client name is required")
	}
	if o.Uri == "" {
		return fmt.Errorf("mongo uri is required")
	}
	return nil
}

// newClient 创建客户端，连接在首次操作时建立
func newClient(opts MongoOptions, logger logging.Logger) (*mongo.Client, error) {
	clientOpts := options.Client().ApplyURI(opts.Uri)
	if opts.Username != "" || opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client '%s': %w", opts.Name, err)
	}
	logger.Info("mongo client created", logging.Field{Key: "name", Value: opts.Name})
	return client, nil
}

// disconnect 容器释放客户端时断开连接
func disconnect(timeout time.Duration) func(any) error {
	return func(v any) error {
		client, ok := v.(*mongo.Client)
		if !ok {
			return fmt.Errorf("mongodb: unexpected instance %T", v)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return client.Disconnect(ctx)
	}
}

// MongoFactory 按名称获取容器中的 MongoDB 客户端
type MongoFactory struct {
	resolver di.Resolver
	names    []string
}

// Get 获取指定名称的客户端
func (f *MongoFactory) Get(name string) (*mongo.Client, error) {
	client, err := di.ResolveKeyed[*mongo.Client](f.resolver, name)
	if err != nil {
		return nil, fmt.Errorf("mongo client '%s': %w", name, err)
	}
	return client, nil
}

// Database 获取指定客户端上配置的数据库
func (f *MongoFactory) Database(name string) (*mongo.Database, error) {
	db, err := di.ResolveKeyed[*mongo.Database](f.resolver, name)
	if err != nil {
		return nil, fmt.Errorf("mongo database '%s': %w", name, err)
	}
	return db, nil
}

// Names 返回所有客户端名称
func (f *MongoFactory) Names() []string {
	names := append([]string(nil), f.names...)
	sort.Strings(names)
	return names
}
