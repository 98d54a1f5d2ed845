package config

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// EtcdOptions etcd 配置选项
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 读取超时时间（默认 5 秒）
	DialTimeout time.Duration // 拨号超时时间（默认 5 秒）
}

// EtcdSource etcd 配置源，键路径中的 / 作为层级分隔
type EtcdSource struct {
	Options EtcdOptions
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create etcd client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}
	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("get %s from etcd: %w", prefix, err)
	}

	kvs := make([][2]string, len(resp.Kvs))
	for i, kv := range resp.Kvs {
		kvs[i] = [2]string{string(kv.Key), string(kv.Value)}
	}
	return decodeEtcdValues(s.Options.Prefix, kvs), nil
}

// decodeEtcdValues 把 etcd 键值转换为嵌套配置。值依次尝试 JSON、YAML，最后作为字符串。
func decodeEtcdValues(prefix string, kvs [][2]string) map[string]any {
	result := make(map[string]any)
	for _, kv := range kvs {
		key := strings.TrimPrefix(strings.TrimPrefix(kv[0], prefix), "/")
		if key == "" {
			continue
		}
		key = strings.ReplaceAll(key, "/", ":")

		var value any
		if err := json.Unmarshal([]byte(kv[1]), &value); err != nil {
			if yerr := yaml.Unmarshal([]byte(kv[1]), &value); yerr != nil {
				value = kv[1]
			}
		}
		setNestedValue(result, key, value)
	}
	return result
}
