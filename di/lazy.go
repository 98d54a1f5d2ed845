package di

import (
	"reflect"
	"sync"
)

// Lazy 延迟解析 T：直到第一次调用 Value 才创建，结果随后被缓存。
// 依赖 Lazy[T] 不会形成依赖环，因为目标在调用时才规划。
type Lazy[T any] struct {
	state *lazyState
}

type lazyState struct {
	once    sync.Once
	resolve func() (reflect.Value, error)
	val     reflect.Value
	err     error
}

// Value 返回解析结果。
func (l Lazy[T]) Value() (T, error) {
	var zero T
	if l.state == nil {
		return zero, &ResolutionError{Err: ErrUnableToResolveUnknownService, ServiceType: TypeOf[T](), Detail: "lazy handle is not bound to a scope"}
	}
	l.state.once.Do(func() {
		l.state.val, l.state.err = l.state.resolve()
	})
	if l.state.err != nil {
		return zero, l.state.err
	}
	return valueAs[T](l.state.val), nil
}

// MustValue 与 Value 相同，失败时 panic。
func (l Lazy[T]) MustValue() T {
	v, err := l.Value()
	if err != nil {
		panic(err)
	}
	return v
}

func (l Lazy[T]) lazyTarget() reflect.Type { return TypeOf[T]() }

func (l Lazy[T]) bind(resolve func() (reflect.Value, error)) any {
	return Lazy[T]{state: &lazyState{resolve: resolve}}
}

type lazyHandle interface {
	lazyTarget() reflect.Type
	bind(resolve func() (reflect.Value, error)) any
}

var lazyHandleType = reflect.TypeOf((*lazyHandle)(nil)).Elem()

func lazyTargetOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || !t.Implements(lazyHandleType) {
		return nil, false
	}
	return reflect.Zero(t).Interface().(lazyHandle).lazyTarget(), true
}

func newLazyValue(t reflect.Type, s *Scope, target Request, b *building) reflect.Value {
	h := reflect.Zero(t).Interface().(lazyHandle).bind(func() (reflect.Value, error) {
		return s.resolveFrom(target, b)
	})
	return reflect.ValueOf(h)
}

func valueAs[T any](v reflect.Value) T {
	var zero T
	x := valueInterface(v)
	if x == nil {
		return zero
	}
	return x.(T)
}
