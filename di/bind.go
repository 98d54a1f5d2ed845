package di

// Bind 把 TService 绑定到已注册的 TImpl，解析 TService 时复用 TImpl 的实例与生命周期。
// 使用示例: di.Bind[Logger, *ConsoleLogger](c)
func Bind[TService, TImpl any](c *Container, opts ...Option) error {
	serviceType, implType := TypeOf[TService](), TypeOf[TImpl]()
	if !implType.AssignableTo(serviceType) {
		return &ResolutionError{
			Err:         ErrRegisteredProducerTypeMismatch,
			ServiceType: serviceType,
			Detail:      implType.String() + " is not assignable",
		}
	}
	alias := func(impl TImpl) TService {
		svc, _ := any(impl).(TService)
		return svc
	}
	return c.Register(serviceType, StaticFunc(alias), append([]Option{WithTransient()}, opts...)...)
}
