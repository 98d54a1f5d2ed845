package compose

import (
	"fmt"

	"github.com/gocrud/compose/config"
	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/hosting"
	"github.com/gocrud/compose/logging"
)

// Runtime 把配置、日志、容器和主机组合在一起
type Runtime struct {
	Config    config.Configuration
	Logger    logging.Logger
	Container *di.Container
	Host      *hosting.Host

	loggerFactory logging.LoggerFactory
}

// Option 修改 Runtime 的函数，返回错误时构建中止
type Option func(rt *Runtime) error

// LoadOptions 从 container 配置节读取容器设置和主机选项
func LoadOptions(cfg config.Configuration, logger logging.Logger) (di.Options, hosting.HostOptions, error) {
	settings, err := config.LoadContainerSettings(cfg)
	if err != nil {
		return di.Options{}, hosting.HostOptions{}, fmt.Errorf("compose: load container settings: %w", err)
	}
	opts, err := settings.Options(logger)
	if err != nil {
		return di.Options{}, hosting.HostOptions{}, fmt.Errorf("compose: %w", err)
	}
	return opts, hosting.HostOptions{
		ValidateOnStart: settings.ValidateOnStart,
		WarmUp:          settings.WarmUp,
	}, nil
}

// NewRuntime 根据配置创建运行时并依次应用选项
// 配置和日志会注册为容器中的常量
func NewRuntime(cfg config.Configuration, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		empty, err := config.NewConfigurationBuilder().Build()
		if err != nil {
			return nil, err
		}
		cfg = empty
	}
	settings, err := config.LoadContainerSettings(cfg)
	if err != nil {
		return nil, fmt.Errorf("compose: load container settings: %w", err)
	}

	lb := logging.NewLoggingBuilder()
	if level, ok := logging.ParseLevel(settings.LogLevel); ok {
		lb.SetMinimumLevel(level)
	}
	factory := lb.AddConsole().Build()
	logger := factory.CreateLogger("compose")

	diOpts, hostOpts, err := LoadOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	c := di.NewContainer(di.WithOptions(diOpts))
	rt := &Runtime{
		Config:        cfg,
		Logger:        logger,
		Container:     c,
		Host:          hosting.NewHost(c, hostOpts),
		loggerFactory: factory,
	}
	if err := config.AddConfiguration(c, cfg); err != nil {
		return nil, err
	}
	if err := di.RegisterValue[logging.Logger](c, logger); err != nil {
		return nil, err
	}
	if err := rt.Apply(opts...); err != nil {
		return nil, err
	}
	return rt, nil
}

// Apply 应用多个 Option
func (rt *Runtime) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(rt); err != nil {
			return err
		}
	}
	return nil
}

// Provide 注册服务 (语法糖)
func (rt *Runtime) Provide(target any, opts ...di.Option) error {
	_, err := di.Provide(rt.Container, target, opts...)
	return err
}
