package di

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/gocrud/compose/logging"
)

type instanceKey struct {
	regID       uint64
	serviceType reflect.Type
}

type scopeEntry struct {
	val atomic.Pointer[reflect.Value] // 存储实例（如果尚未创建则为 nil）
	mu  sync.Mutex                    // 用于创建此特定实例的锁
}

// Scope 表示作用域生命周期上下文。
// 根作用域保存单例，也可以充当容器级的作用域。
type Scope struct {
	container *Container
	parent    *Scope
	root      *Scope
	id        uint64

	mu          sync.Mutex
	entries     map[instanceKey]*scopeEntry
	disposables []disposable
	children    map[*Scope]struct{}
	disposed    atomic.Bool
}

var scopeSeq atomic.Uint64

func newScope(c *Container, parent *Scope) *Scope {
	s := &Scope{
		container: c,
		parent:    parent,
		id:        scopeSeq.Add(1),
		entries:   map[instanceKey]*scopeEntry{},
	}
	if parent == nil {
		s.root = s
	} else {
		s.root = parent.root
	}
	return s
}

// ID 返回作用域的进程内唯一编号。
func (s *Scope) ID() uint64 { return s.id }

// Parent 返回父作用域，根作用域返回 nil。
func (s *Scope) Parent() *Scope { return s.parent }

// IsDisposed 报告作用域是否已释放。
func (s *Scope) IsDisposed() bool { return s.disposed.Load() }

// Resolve 在此作用域中解析服务。
func (s *Scope) Resolve(serviceType reflect.Type, serviceKey any, ifUnresolved IfUnresolved) (any, error) {
	return s.ResolveRequest(NewRequest(serviceType, serviceKey, ifUnresolved))
}

// ResolveRequest 在此作用域中解析请求。
func (s *Scope) ResolveRequest(req Request) (any, error) {
	v, err := s.resolveValue(req)
	if err != nil {
		return nil, err
	}
	return valueInterface(v), nil
}

func (s *Scope) resolveValue(req Request) (reflect.Value, error) {
	return s.resolveFrom(req, nil)
}

func (s *Scope) resolveFrom(req Request, b *building) (reflect.Value, error) {
	if s.disposed.Load() {
		return reflect.Value{}, newResolutionError(ErrScopeIsDisposed, req, "scope %d", s.id)
	}
	pl, err := s.container.state.Load().plan(req)
	if err != nil {
		return reflect.Value{}, err
	}
	return s.execute(pl, b)
}

// Invoke 调用 fn，参数从此作用域解析，返回除末尾 error 之外的结果。
func (s *Scope) Invoke(fn any, args ...Arg) ([]any, error) {
	m, err := newInvokeMethod(fn, args)
	if err != nil {
		return nil, err
	}
	if s.disposed.Load() {
		return nil, &ResolutionError{Err: ErrScopeIsDisposed, Detail: m.Name}
	}
	p := s.container.state.Load().planner
	params, err := p.planArgs(nil, m, false)
	if err != nil {
		return nil, err
	}
	in := make([]reflect.Value, len(params))
	for i, pl := range params {
		if in[i], err = s.execute(pl, nil); err != nil {
			return nil, err
		}
	}
	results, err := callFunc(reflect.ValueOf(fn), in)
	out := make([]any, len(results))
	for i, r := range results {
		out[i] = valueInterface(r)
	}
	return out, err
}

// getOrCreate 每个键最多创建一次；创建失败不缓存。
func (s *Scope) getOrCreate(key instanceKey, create func() (reflect.Value, error)) (reflect.Value, error) {
	if s.disposed.Load() {
		return reflect.Value{}, &ResolutionError{Err: ErrScopeIsDisposed, ServiceType: key.serviceType, Detail: fmt.Sprintf("scope %d", s.id)}
	}
	entry := s.entry(key)
	if entry == nil {
		return reflect.Value{}, &ResolutionError{Err: ErrScopeIsDisposed, ServiceType: key.serviceType, Detail: fmt.Sprintf("scope %d", s.id)}
	}

	// 快速路径：检查是否已创建
	if v := entry.val.Load(); v != nil {
		return *v, nil
	}

	// 慢速路径：带锁创建
	entry.mu.Lock()
	defer entry.mu.Unlock()

	// 双重检查
	if v := entry.val.Load(); v != nil {
		return *v, nil
	}

	v, err := create()
	if err != nil {
		return reflect.Value{}, err
	}
	entry.val.Store(&v)
	return v, nil
}

func (s *Scope) entry(key instanceKey) *scopeEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries == nil {
		return nil
	}
	e, ok := s.entries[key]
	if !ok {
		e = &scopeEntry{}
		s.entries[key] = e
	}
	return e
}

// track 记录需要释放的实例；作用域已释放时立即释放它并返回错误。
func (s *Scope) track(reg *Registration, v reflect.Value) error {
	fn, ok := disposerFor(reg, v)
	if !ok {
		return nil
	}
	d := disposable{name: ServiceKey{reg.serviceType, reg.serviceKey}.String(), fn: fn}

	s.mu.Lock()
	if !s.disposed.Load() {
		s.disposables = append(s.disposables, d)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err := &ResolutionError{Err: ErrScopeIsDisposed, ServiceType: reg.serviceType, ServiceKey: reg.serviceKey}
	if derr := d.run(); derr != nil {
		s.container.logger.Warn("di: dispose after scope closed failed", logging.Field{Key: "service", Value: d.name}, logging.Field{Key: "error", Value: derr})
	}
	return err
}

// Dispose 先释放子作用域，再按创建的逆序释放实例。
// 所有释放都会执行，失败汇总为 *AggregateDisposalError。重复调用无效果。
func (s *Scope) Dispose() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	items := s.disposables
	children := make([]*Scope, 0, len(s.children))
	for child := range s.children {
		children = append(children, child)
	}
	s.disposables = nil
	s.children = nil
	s.entries = nil
	s.mu.Unlock()

	if s.parent != nil {
		s.parent.removeChild(s)
	}

	var errs []error
	for _, child := range children {
		if err := child.Dispose(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := disposeAll(items); err != nil {
		errs = append(errs, err.Errors...)
	}

	s.container.logger.Debug("di: scope disposed",
		logging.Field{Key: "scope", Value: s.id},
		logging.Field{Key: "instances", Value: len(items)},
	)
	if len(errs) > 0 {
		for _, err := range errs {
			s.container.logger.Error("di: dispose failed", logging.Field{Key: "scope", Value: s.id}, logging.Field{Key: "error", Value: err})
		}
		return &AggregateDisposalError{Errors: errs}
	}
	return nil
}

func (s *Scope) addChild(child *Scope) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed.Load() {
		return false
	}
	if s.children == nil {
		s.children = map[*Scope]struct{}{}
	}
	s.children[child] = struct{}{}
	return true
}

func (s *Scope) removeChild(child *Scope) {
	s.mu.Lock()
	delete(s.children, child)
	s.mu.Unlock()
}

func valueInterface(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}
