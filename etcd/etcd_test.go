package etcd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/gocrud/compose/config"
	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/etcd"
)

// mockService 模拟依赖 Etcd 客户端的服务
type mockService struct {
	Master *clientv3.Client `di:"master"`
	Slave  *clientv3.Client `di:"slave,?"`
}

func TestEtcdClients(t *testing.T) {
	c := di.NewContainer()
	factory, err := etcd.New(c, etcd.WithClient("master", func(o *etcd.EtcdClientOptions) {
		o.Endpoints = []string{"127.0.0.1:1"}
	}))
	require.NoError(t, err)
	require.NoError(t, di.Register[*mockService](c))

	svc := di.MustResolve[*mockService](c)
	require.NotNil(t, svc.Master)
	assert.Nil(t, svc.Slave)

	master, err := factory.Get("master")
	require.NoError(t, err)
	assert.Same(t, svc.Master, master)

	// 只有一个有键注册时，无键解析回退到它
	assert.Same(t, master, di.MustResolve[*clientv3.Client](c))

	require.NoError(t, c.Dispose())
	assert.Error(t, master.Ctx().Err())
}

func TestEtcdBuilderErrors(t *testing.T) {
	_, err := etcd.New(di.NewContainer(),
		etcd.WithClient("invalid", func(o *etcd.EtcdClientOptions) { o.Endpoints = nil }),
		etcd.WithClient("duplicate"),
		etcd.WithClient("duplicate"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoints are required")
	assert.Contains(t, err.Error(), "already configured")
}

func TestEtcdClientsFromConfig(t *testing.T) {
	cfg, err := config.NewConfigurationBuilder().AddInMemory(map[string]any{
		"etcd": map[string]any{
			"default": map[string]any{"endpoints": []any{"127.0.0.1:1", "127.0.0.1:2"}},
		},
	}).Build()
	require.NoError(t, err)

	c := di.NewContainer()
	factory, err := etcd.New(c, etcd.WithConfig(cfg, "etcd"))
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, factory.Names())

	client := di.MustResolve[*clientv3.Client](c)
	assert.ElementsMatch(t, []string{"127.0.0.1:1", "127.0.0.1:2"}, client.Endpoints())
	require.NoError(t, c.Dispose())
}
