package di

import (
	"reflect"

	"go.uber.org/multierr"

	"github.com/gocrud/compose/logging"
)

// Validate 为每个注册构建计划，汇总所有规划错误。
// 不创建任何实例。
func (c *Container) Validate() error {
	sn := c.state.Load()
	errs := sn.validate(sn.planner.registry.Registrations())
	if errs != nil {
		c.logger.Warn("di: validation failed", logging.Field{Key: "errors", Value: len(multierr.Errors(errs))})
	}
	return errs
}

// ValidateType 只检查 serviceType 的注册，包括集合解析时会被跳过的注册。
func (c *Container) ValidateType(serviceType reflect.Type) error {
	sn := c.state.Load()
	return sn.validate(sn.planner.registry.All(serviceType))
}

func (sn *snapshot) validate(regs []*Registration) error {
	var errs error
	for _, reg := range regs {
		req := NewRequest(reg.serviceType, reg.serviceKey, IfUnresolvedThrow)
		if _, err := sn.planner.planRegistration(req, reg); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// WarmUp 立即创建所有单例，按注册顺序。
func (c *Container) WarmUp() error {
	sn := c.state.Load()
	var errs error
	for _, reg := range sn.planner.registry.Registrations() {
		if reg.scope != ScopeSingleton || reg.producer.Kind == ProducerConstant {
			continue
		}
		req := NewRequest(reg.serviceType, reg.serviceKey, IfUnresolvedThrow)
		pl, err := sn.planner.planRegistration(req, reg)
		if err == nil {
			_, err = c.root.execute(pl, nil)
		}
		errs = multierr.Append(errs, err)
	}
	return errs
}

// Dependencies 返回某注册的直接依赖，按参数顺序。
func (c *Container) Dependencies(serviceType reflect.Type, serviceKey any) ([]ServiceKey, error) {
	pl, err := c.Plan(NewRequest(serviceType, serviceKey, IfUnresolvedThrow))
	if err != nil {
		return nil, err
	}
	var deps []ServiceKey
	if pl.factory != nil && pl.factory.reg != nil {
		deps = append(deps, ServiceKey{pl.factory.reg.serviceType, pl.factory.reg.serviceKey})
	}
	for _, a := range pl.args {
		if a.reg != nil {
			deps = append(deps, ServiceKey{a.reg.serviceType, a.reg.serviceKey})
		}
	}
	return deps, nil
}
