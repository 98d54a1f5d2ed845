package etcd

import (
	"fmt"
	"sort"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

// DefaultName 默认客户端名称，同时注册为无键的 *clientv3.Client
const DefaultName = "default"

// EtcdClientOptions etcd 客户端配置选项
type EtcdClientOptions struct {
	Name               string        `json:"name"`                   // 客户端名称
	Endpoints          []string      `json:"endpoints"`              // etcd 服务器地址列表
	DialTimeout        time.Duration `json:"dial_timeout"`           // 连接超时时间
	Username           string        `json:"username"`               // 用户名（可选）
	Password           string        `json:"password"`               // 密码（可选）
	AutoSyncInterval   time.Duration `json:"auto_sync_interval"`     // 自动同步间隔（可选）
	MaxCallSendMsgSize int           `json:"max_call_send_msg_size"` // 最大发送消息大小（可选）
	MaxCallRecvMsgSize int           `json:"max_call_recv_msg_size"` // 最大接收消息大小（可选）
}

// NewDefaultOptions 创建默认配置
func NewDefaultOptions(name string) *EtcdClientOptions {
	return &EtcdClientOptions{
		Name:        name,
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
	}
}

// Validate 验证配置
func (o *EtcdClientOptions) Validate() error {
	if o.Name == "" {
		return fmt.Errorf("etcd client name is required")
	}
	if len(o.Endpoints) == 0 {
		return fmt.Errorf("etcd endpoints are required")
	}
	if o.DialTimeout <= 0 {
		return fmt.Errorf("etcd dial timeout must be positive")
	}
	return nil
}

// newClient 创建 etcd 客户端，容器释放时通过 Close 关闭
func newClient(opts EtcdClientOptions, logger logging.Logger) (*clientv3.Client, error) {
	config := clientv3.Config{
		Endpoints:          opts.Endpoints,
		DialTimeout:        opts.DialTimeout,
		AutoSyncInterval:   opts.AutoSyncInterval,
		MaxCallSendMsgSize: opts.MaxCallSendMsgSize,
		MaxCallRecvMsgSize: opts.MaxCallRecvMsgSize,
	}
	if opts.Username != "" {
		config.Username = opts.Username
		config.Password = opts.Password
	}

	client, err := clientv3.New(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client '%s': %w", opts.Name, err)
	}
	logger.Info("etcd client created",
		logging.Field{Key: "name", Value: opts.Name},
		logging.Field{Key: "endpoints", Value: opts.Endpoints})
	return client, nil
}

// EtcdClientFactory 按名称获取容器中的 etcd 客户端
type EtcdClientFactory struct {
	resolver di.Resolver
	names    []string
}

// Get 获取指定名称的客户端
func (f *EtcdClientFactory) Get(name string) (*clientv3.Client, error) {
	client, err := di.ResolveKeyed[*clientv3.Client](f.resolver, name)
	if err != nil {
		return nil, fmt.Errorf("etcd client '%s': %w", name, err)
	}
	return client, nil
}

// Names 返回所有客户端名称
func (f *EtcdClientFactory) Names() []string {
	names := append([]string(nil), f.names...)
	sort.Strings(names)
	return names
}
