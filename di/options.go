package di

import "reflect"

// Option 配置服务注册。
type Option func(*registerOptions)

type registerOptions struct {
	key             any
	scope           ScopeType
	scopeSet        bool
	producer        *Producer
	condition       func(RequestInfo) bool
	isDefault       bool
	trackDisposable bool
	disposer        func(any) error
}

func newRegisterOptions(defaultScope ScopeType, opts []Option) *registerOptions {
	o := &registerOptions{scope: defaultScope}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithScope 设置服务的生命周期范围。
func WithScope(scope ScopeType) Option {
	return func(o *registerOptions) {
		o.scope = scope
		o.scopeSet = true
	}
}

// WithSingleton 将范围设置为 Singleton。
func WithSingleton() Option {
	return WithScope(ScopeSingleton)
}

// WithTransient 将范围设置为 Transient。
func WithTransient() Option {
	return WithScope(ScopeTransient)
}

// WithScoped 将范围设置为 Scoped。
func WithScoped() Option {
	return WithScope(ScopeScoped)
}

// WithKey 设置服务键。同一类型下的键用于区分多个注册。
func WithKey(key any) Option {
	return func(o *registerOptions) {
		o.key = key
	}
}

// WithName 等价于以字符串为键的 WithKey。
func WithName(name string) Option {
	return WithKey(name)
}

// WithToken 使用 Token 作为服务键。
func WithToken(tok tokenKey) Option {
	return WithKey(tok)
}

// WithValue 将已创建好的实例注册为常量。
func WithValue(v any) Option {
	return func(o *registerOptions) {
		o.producer = Constant(v)
		if !o.scopeSet {
			o.scope = ScopeSingleton
		}
	}
}

// WithFactory 注册一个工厂函数，其参数由容器注入。
func WithFactory(fn any, args ...Arg) Option {
	return func(o *registerOptions) {
		o.producer = StaticFunc(fn, args...)
	}
}

// WithConstructor 注册一个或多个候选构造函数，由容器选择参数最多且可满足的那个。
func WithConstructor(ctors ...any) Option {
	return func(o *registerOptions) {
		o.producer = Constructor(ctors...)
	}
}

// WithMethod 注册一个方法表达式，接收者从容器中解析。
func WithMethod(method any, args ...Arg) Option {
	return func(o *registerOptions) {
		o.producer = InstanceFunc(method, args...)
	}
}

// Use 指定接口的实现类型，按 di 标签进行字段注入。
func Use[T any]() Option {
	return func(o *registerOptions) {
		o.producer = StructOf(reflect.TypeOf((*T)(nil)).Elem())
	}
}

// WithCondition 仅当条件满足时该注册才参与候选。
func WithCondition(cond func(RequestInfo) bool) Option {
	return func(o *registerOptions) {
		o.condition = cond
	}
}

// AsDefault 在无键查找时优先选择该注册。
func AsDefault() Option {
	return func(o *registerOptions) {
		o.isDefault = true
	}
}

// WithTrackDisposable 让 Transient 实例也由当前作用域负责释放。
func WithTrackDisposable() Option {
	return func(o *registerOptions) {
		o.trackDisposable = true
	}
}

// WithDisposer 指定实例的释放函数，覆盖 Dispose/Close 检测。
func WithDisposer(fn func(any) error) Option {
	return func(o *registerOptions) {
		o.disposer = fn
	}
}
