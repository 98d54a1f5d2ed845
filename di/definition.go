package di

import (
	"fmt"
	"reflect"
)

// ScopeType 定义了服务的生命周期（复用策略）。
type ScopeType int

const (
	// ScopeSingleton 每个容器创建一个实例。
	ScopeSingleton ScopeType = iota
	// ScopeTransient 每次请求创建一个新实例。
	ScopeTransient
	// ScopeScoped 每个作用域创建一个实例。
	ScopeScoped
)

func (s ScopeType) String() string {
	switch s {
	case ScopeSingleton:
		return "singleton"
	case ScopeTransient:
		return "transient"
	case ScopeScoped:
		return "scoped"
	default:
		return fmt.Sprintf("ScopeType(%d)", int(s))
	}
}

// ParseScopeType 把配置中的字符串转换为 ScopeType。
func ParseScopeType(s string) (ScopeType, error) {
	switch s {
	case "", "singleton":
		return ScopeSingleton, nil
	case "transient":
		return ScopeTransient, nil
	case "scoped":
		return ScopeScoped, nil
	}
	return 0, fmt.Errorf("di: unknown scope %q", s)
}

// IfUnresolved 决定请求无法满足时的行为。
type IfUnresolved int

const (
	// IfUnresolvedThrow 返回错误。
	IfUnresolvedThrow IfUnresolved = iota
	// IfUnresolvedReturnDefault 返回类型零值。
	IfUnresolvedReturnDefault
)

// ServiceKey 标识一个服务：类型加可选的键。
type ServiceKey struct {
	Type reflect.Type
	Key  any
}

func (k ServiceKey) String() string {
	if k.Key == nil {
		return fmt.Sprint(k.Type)
	}
	return fmt.Sprintf("%v{%v}", k.Type, k.Key)
}

// RequestInfo 是条件函数可见的请求上下文。
type RequestInfo struct {
	ServiceType reflect.Type
	ServiceKey  any
	// Parents 从直接父级开始，到根请求结束。
	Parents []ServiceKey
}

// Parent 返回直接依赖方，根请求返回 false。
func (r RequestInfo) Parent() (ServiceKey, bool) {
	if len(r.Parents) == 0 {
		return ServiceKey{}, false
	}
	return r.Parents[0], true
}

// Registration 是一条不可变的注册记录。
type Registration struct {
	id              uint64
	serviceType     reflect.Type
	serviceKey      any
	producer        *Producer
	scope           ScopeType
	condition       func(RequestInfo) bool
	isDefault       bool
	trackDisposable bool
	disposer        func(any) error
}

func (r *Registration) ID() uint64                { return r.id }
func (r *Registration) ServiceType() reflect.Type { return r.serviceType }
func (r *Registration) ServiceKey() any           { return r.serviceKey }
func (r *Registration) Producer() *Producer       { return r.producer }
func (r *Registration) Scope() ScopeType          { return r.scope }
func (r *Registration) IsDefault() bool           { return r.isDefault }

func (r *Registration) String() string {
	return fmt.Sprintf("#%d %v (%s, %s)", r.id, ServiceKey{r.serviceType, r.serviceKey}, r.producer.Kind, r.scope)
}

func (r *Registration) matches(info RequestInfo) bool {
	return r.condition == nil || r.condition(info)
}

// newRegistration 校验生产者与服务类型的兼容性。
func newRegistration(id uint64, serviceType reflect.Type, producer *Producer, o *registerOptions) (*Registration, error) {
	key := ServiceKey{Type: serviceType, Key: o.key}
	if serviceType == nil {
		return nil, &ResolutionError{Err: ErrInvalidProducer, Detail: "nil service type"}
	}
	if producer == nil {
		return nil, &ResolutionError{Err: ErrInvalidProducer, ServiceType: serviceType, ServiceKey: o.key, Detail: "nil producer"}
	}
	if producer.err != nil {
		return nil, &ResolutionError{Err: producer.err, ServiceType: serviceType, ServiceKey: o.key, Detail: producer.errDetail}
	}
	if !producer.assignableTo(serviceType) {
		return nil, &ResolutionError{
			Err:         ErrRegisteredProducerTypeMismatch,
			ServiceType: serviceType,
			ServiceKey:  o.key,
			Detail:      fmt.Sprintf("%s produces %v, not assignable to %v", producer.Kind, producer.ImplType, key.Type),
		}
	}
	return &Registration{
		id:              id,
		serviceType:     serviceType,
		serviceKey:      o.key,
		producer:        producer,
		scope:           o.scope,
		condition:       o.condition,
		isDefault:       o.isDefault,
		trackDisposable: o.trackDisposable,
		disposer:        o.disposer,
	}, nil
}
