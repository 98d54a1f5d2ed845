package config

import (
	"github.com/gocrud/compose/di"
	"github.com/gocrud/compose/logging"
)

// ContainerSection 是容器设置所在的配置节
const ContainerSection = "container"

// ContainerSettings 容器设置
type ContainerSettings struct {
	DefaultScope    string `json:"default_scope" yaml:"default_scope"`
	StrictDefaults  bool   `json:"strict_defaults" yaml:"strict_defaults"`
	ValidateOnStart bool   `json:"validate_on_start" yaml:"validate_on_start"`
	WarmUp          bool   `json:"warm_up" yaml:"warm_up"`
	LogLevel        string `json:"log_level" yaml:"log_level"`
}

// LoadContainerSettings 读取容器设置，节不存在时返回默认值
func LoadContainerSettings(cfg Configuration) (ContainerSettings, error) {
	var s ContainerSettings
	if len(cfg.GetSection(ContainerSection).GetAll()) == 0 {
		return s, nil
	}
	err := cfg.Bind(ContainerSection, &s)
	return s, err
}

// Options 转换为 di.Options，日志使用 logger。
func (s ContainerSettings) Options(logger logging.Logger) (di.Options, error) {
	scope, err := di.ParseScopeType(s.DefaultScope)
	if err != nil {
		return di.Options{}, err
	}
	return di.Options{
		DefaultScope:   scope,
		StrictDefaults: s.StrictDefaults,
		Logger:         logger,
	}, nil
}

// AddConfiguration 把配置本身注册为容器中的常量
func AddConfiguration(c *di.Container, cfg Configuration) error {
	return di.RegisterValue(c, cfg)
}
