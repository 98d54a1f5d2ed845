package di

import (
	"fmt"
	"reflect"
)

// Provide 按目标的形态推断服务类型并注册。
//
// 支持的输入 target 类型:
//  1. func(...) (Service, error?) -> 构造函数，ServiceType 为第一个返回值。
//  2. reflect.Type                 -> 按 di 标签做字段注入，ServiceType 为该 Type。
//  3. 其它值                        -> 常量，ServiceType 为值的动态类型。
func Provide(c *Container, target any, opts ...Option) (reflect.Type, error) {
	var (
		serviceType reflect.Type
		producer    *Producer
	)
	switch t := target.(type) {
	case nil:
		return nil, &ResolutionError{Err: ErrInvalidProducer, Detail: "cannot provide nil"}
	case reflect.Type:
		serviceType, producer = t, StructOf(t)
	default:
		v := reflect.ValueOf(target)
		if v.Kind() == reflect.Func {
			producer = Constructor(target)
			serviceType = producer.ImplType
		} else {
			serviceType, producer = v.Type(), Constant(target)
		}
	}
	if err := c.Register(serviceType, producer, opts...); err != nil {
		return nil, err
	}
	return serviceType, nil
}

// Register 注册 T。未通过选项指定生产者时，T 必须是结构体或结构体指针，按 di 标签注入字段。
// 如果 T 是接口，使用 di.Use[Impl]() 或 WithFactory 等指定实现。
func Register[T any](c *Container, opts ...Option) error {
	typ := TypeOf[T]()
	var producer *Producer
	if newRegisterOptions(c.options.DefaultScope, opts).producer == nil {
		producer = StructOf(typ)
	}
	return c.Register(typ, producer, opts...)
}

// MustRegister 与 Register 相同，失败时 panic。
func MustRegister[T any](c *Container, opts ...Option) {
	if err := Register[T](c, opts...); err != nil {
		panic(fmt.Sprintf("di: failed to register %v: %v", TypeOf[T](), err))
	}
}

// RegisterValue 把 v 注册为 T 的常量。
func RegisterValue[T any](c *Container, v T, opts ...Option) error {
	return c.Register(TypeOf[T](), Constant(v), opts...)
}

// RegisterFunc 把普通函数注册为 T 的生产者。
func RegisterFunc[T any](c *Container, fn any, opts ...Option) error {
	return c.Register(TypeOf[T](), StaticFunc(fn), opts...)
}

// RegisterMethod 把方法表达式注册为 T 的生产者，接收者从容器解析。
func RegisterMethod[T any](c *Container, method any, opts ...Option) error {
	return c.Register(TypeOf[T](), InstanceFunc(method), opts...)
}

// Resolve 从容器或作用域解析 T。
func Resolve[T any](r Resolver) (T, error) {
	return resolveAs[T](r, NewRequest(TypeOf[T](), nil, IfUnresolvedThrow))
}

// ResolveKeyed 按键解析 T。
func ResolveKeyed[T any](r Resolver, key any) (T, error) {
	return resolveAs[T](r, NewRequest(TypeOf[T](), key, IfUnresolvedThrow))
}

// ResolveToken 按 Token 解析 T。
func ResolveToken[T any](r Resolver, tok *Token[T]) (T, error) {
	return ResolveKeyed[T](r, tok)
}

// TryResolve 解析 T，服务不存在时返回零值而不是错误。
// 递归依赖和生产者失败仍然返回错误。
func TryResolve[T any](r Resolver) (T, error) {
	return resolveAs[T](r, NewRequest(TypeOf[T](), nil, IfUnresolvedReturnDefault))
}

// MustResolve 与 Resolve 相同，失败时 panic。
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

func resolveAs[T any](r Resolver, req Request) (T, error) {
	var zero T
	v, err := r.ResolveRequest(req)
	if err != nil || v == nil {
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("di: resolved %T is not %v", v, req.ServiceType)
	}
	return out, nil
}
