package di

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// building 是一次解析中正在构造的注册，链表只追加、不修改。
// Lazy 句柄保存创建它时的链，构造期间调用 Value 时据此发现依赖环。
type building struct {
	regID  uint64
	key    ServiceKey
	parent *building
	done   atomic.Bool
}

// check 在链上查找仍在构造中的同一注册。
func (b *building) check(p *Plan) error {
	for f := b; f != nil; f = f.parent {
		if f.regID != p.reg.id || f.done.Load() {
			continue
		}
		var chain []ServiceKey
		for g := b; g != nil; g = g.parent {
			chain = append([]ServiceKey{g.key}, chain...)
		}
		return &ResolutionError{
			Err:         ErrRecursiveDependencyDetected,
			ServiceType: p.reg.serviceType,
			ServiceKey:  p.reg.serviceKey,
			Chain:       append(chain, ServiceKey{p.reg.serviceType, p.reg.serviceKey}),
			Detail:      "resolved again while under construction",
		}
	}
	return nil
}

// execute 深度优先、从左到右执行计划，b 是当前正在构造的注册链。
func (s *Scope) execute(p *Plan, b *building) (reflect.Value, error) {
	switch p.kind {
	case planConstant:
		if p.reg != nil && p.reg.trackDisposable {
			root := s.root
			return root.getOrCreate(p.instanceKey(), func() (reflect.Value, error) {
				return p.value, root.track(p.reg, p.value)
			})
		}
		return p.value, nil

	case planUnresolved:
		return reflect.Zero(p.serviceType), nil

	case planLazy:
		return newLazyValue(p.serviceType, s, p.target, b), nil

	case planCollection:
		out := reflect.MakeSlice(p.serviceType, 0, len(p.items))
		for _, item := range p.items {
			v, err := s.execute(item, b)
			if err != nil {
				return reflect.Value{}, err
			}
			out = reflect.Append(out, v)
		}
		return out, nil

	case planInvoke:
		// 必须在加锁之前检查，否则同一 goroutine 会在实例锁上自锁
		if err := b.check(p); err != nil {
			return reflect.Value{}, err
		}
		switch p.reg.scope {
		case ScopeSingleton:
			root := s.root
			return root.getOrCreate(p.instanceKey(), func() (reflect.Value, error) {
				return root.construct(p, b)
			})
		case ScopeScoped:
			return s.getOrCreate(p.instanceKey(), func() (reflect.Value, error) {
				return s.construct(p, b)
			})
		default:
			return s.construct(p, b)
		}
	}
	return reflect.Value{}, fmt.Errorf("di: unknown plan kind %d", p.kind)
}

// construct 解析接收者与参数后调用生产者，并登记需要释放的实例。
func (s *Scope) construct(p *Plan, b *building) (reflect.Value, error) {
	nb := &building{regID: p.reg.id, key: ServiceKey{p.reg.serviceType, p.reg.serviceKey}, parent: b}
	defer nb.done.Store(true)

	args := make([]reflect.Value, 0, len(p.args)+1)
	if p.factory != nil {
		recv, err := s.execute(p.factory, nb)
		if err != nil {
			return reflect.Value{}, err
		}
		if isNilValue(recv) {
			return reflect.Value{}, &ResolutionError{
				Err:         ErrFactoryObjIsNull,
				ServiceType: p.reg.serviceType,
				ServiceKey:  p.reg.serviceKey,
				Detail:      p.method.Name,
			}
		}
		args = append(args, recv)
	}
	for _, a := range p.args {
		v, err := s.execute(a, nb)
		if err != nil {
			return reflect.Value{}, err
		}
		args = append(args, v)
	}

	v, err := p.method.call(args)
	if err != nil {
		return reflect.Value{}, fmt.Errorf("di: %s for %v: %w", p.method.Name, ServiceKey{p.reg.serviceType, p.reg.serviceKey}, err)
	}
	if p.reg.scope != ScopeTransient || p.reg.trackDisposable {
		if err := s.track(p.reg, v); err != nil {
			return reflect.Value{}, err
		}
	}
	return v, nil
}

// newInvokeMethod 为 Invoke 构造参数表，对返回值不做限制。
func newInvokeMethod(fn any, args []Arg) (*Method, error) {
	v := reflect.ValueOf(fn)
	if fn == nil || v.Kind() != reflect.Func || v.IsNil() {
		return nil, &ResolutionError{Err: ErrInvalidProducer, Detail: fmt.Sprintf("expected a function, got %T", fn)}
	}
	t := v.Type()
	m := &Method{Name: funcName(v), Params: make([]Param, t.NumIn())}
	for i := range m.Params {
		m.Params[i] = Param{Name: fmt.Sprintf("arg%d", i), Type: t.In(i)}
	}
	if err := applyArgs(m.Params, args); err != nil {
		return nil, &ResolutionError{Err: ErrInvalidProducer, Detail: fmt.Sprintf("%s: %v", m.Name, err)}
	}
	return m, nil
}
