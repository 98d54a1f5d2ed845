package compose

import (
	"fmt"

	"github.com/gocrud/compose/cron"
	"github.com/gocrud/compose/database"
	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/etcd"
	"github.com/gocrud/compose/hosting"
	"github.com/gocrud/compose/mongodb"
	"github.com/gocrud/compose/redis"
	"github.com/gocrud/compose/web"
)

// WithServices 在容器上执行注册函数
// 使用示例: compose.WithServices(func(c *di.Container) error { return di.Register[*UserService](c) })
func WithServices(register func(c *di.Container) error) Option {
	return func(rt *Runtime) error {
		return register(rt.Container)
	}
}

// WithHostedService 注册一个托管服务，主机启动时调用 Start，停止时调用 Stop
func WithHostedService[T hosting.HostedService](opts ...di.Option) Option {
	return func(rt *Runtime) error {
		return hosting.AddHostedService[T](rt.Container, opts...)
	}
}

// WithWorker 注册一个函数形式的后台任务
func WithWorker(fn hosting.WorkerFunc) Option {
	return func(rt *Runtime) error {
		return hosting.AddWorker(rt.Container, fn)
	}
}

// Web 启用 HTTP 服务
// 使用示例: compose.Web(web.WithPort(8080), web.WithControllers(NewUserController))
func Web(opts ...web.BuilderOption) Option {
	return func(rt *Runtime) error {
		if _, err := web.New(rt.Container, opts...); err != nil {
			return fmt.Errorf("compose: web: %w", err)
		}
		return nil
	}
}

// Cron 启用定时任务
func Cron(opts ...cron.BuilderOption) Option {
	return func(rt *Runtime) error {
		if _, err := cron.New(rt.Container, opts...); err != nil {
			return fmt.Errorf("compose: cron: %w", err)
		}
		return nil
	}
}

// Redis 启用 Redis 客户端，section 非空时先从该配置节读取客户端
func Redis(section string, opts ...redis.BuilderOption) Option {
	return func(rt *Runtime) error {
		if section != "" {
			opts = append([]redis.BuilderOption{redis.WithConfig(rt.Config, section)}, opts...)
		}
		if _, err := redis.New(rt.Container, opts...); err != nil {
			return fmt.Errorf("compose: redis: %w", err)
		}
		return nil
	}
}

// Database 启用 gorm 数据库，section 非空时先从该配置节读取数据库
func Database(section string, opts ...database.BuilderOption) Option {
	return func(rt *Runtime) error {
		if section != "" {
			opts = append([]database.BuilderOption{database.WithConfig(rt.Config, section)}, opts...)
		}
		if _, err := database.New(rt.Container, opts...); err != nil {
			return fmt.Errorf("compose: database: %w", err)
		}
		return nil
	}
}

// Mongo 启用 MongoDB 客户端，section 非空时先从该配置节读取客户端
func Mongo(section string, opts ...mongodb.BuilderOption) Option {
	return func(rt *Runtime) error {
		if section != "" {
			opts = append([]mongodb.BuilderOption{mongodb.WithConfig(rt.Config, section)}, opts...)
		}
		if _, err := mongodb.New(rt.Container, opts...); err != nil {
			return fmt.Errorf("compose: mongodb: %w", err)
		}
		return nil
	}
}

// Etcd 启用 etcd 客户端，section 非空时先从该配置节读取客户端
func Etcd(section string, opts ...etcd.BuilderOption) Option {
	return func(rt *Runtime) error {
		if section != "" {
			opts = append([]etcd.BuilderOption{etcd.WithConfig(rt.Config, section)}, opts...)
		}
		if _, err := etcd.New(rt.Container, opts...); err != nil {
			return fmt.Errorf("compose: etcd: %w", err)
		}
		return nil
	}
}
