package di_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/compose/di"
)

// disposeLog 记录释放顺序
type disposeLog struct {
	mu    sync.Mutex
	names []string
}

func (l *disposeLog) add(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.names = append(l.names, name)
}

func (l *disposeLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.names...)
}

type resource struct {
	name string
	log  *disposeLog
	err  error
}

func (r *resource) Dispose() error {
	r.log.add(r.name)
	return r.err
}

type closer struct {
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

type ResA struct{ *resource }
type ResB struct{ *resource }
type ResC struct{ *resource }

func registerResources(t *testing.T, c *di.Container, log *disposeLog, scope di.Option) {
	t.Helper()
	require.NoError(t, di.RegisterFunc[*ResA](c, func() *ResA {
		return &ResA{&resource{name: "a", log: log}}
	}, scope))
	require.NoError(t, di.RegisterFunc[*ResB](c, func(a *ResA) *ResB {
		return &ResB{&resource{name: "b", log: log}}
	}, scope))
	require.NoError(t, di.RegisterFunc[*ResC](c, func(b *ResB) *ResC {
		return &ResC{&resource{name: "c", log: log}}
	}, scope))
}

func TestScopeSingleton(t *testing.T) {
	c := di.NewContainer()
	count := 0
	require.NoError(t, di.RegisterFunc[*Engine](c, func() *Engine {
		count++
		return &Engine{Power: count}
	}, di.WithSingleton()))

	s1 := c.OpenScope(nil)
	s2 := c.OpenScope(nil)
	a := di.MustResolve[*Engine](s1)
	b := di.MustResolve[*Engine](s2)
	root := di.MustResolve[*Engine](c)

	assert.Same(t, a, b)
	assert.Same(t, a, root)
	assert.Equal(t, 1, count)
}

func TestScopeScoped(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*Engine](c, func() *Engine { return &Engine{} }, di.WithScoped()))

	s1 := c.OpenScope(nil)
	s2 := c.OpenScope(nil)

	a1 := di.MustResolve[*Engine](s1)
	a2 := di.MustResolve[*Engine](s1)
	b1 := di.MustResolve[*Engine](s2)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b1)

	// 嵌套作用域拥有自己的实例
	nested := c.OpenScope(s1)
	assert.NotSame(t, a1, di.MustResolve[*Engine](nested))
}

func TestScopeScoped_RootActsAsScope(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*Engine](c, func() *Engine { return &Engine{} }, di.WithScoped()))

	a := di.MustResolve[*Engine](c)
	b := di.MustResolve[*Engine](c.RootScope())
	assert.Same(t, a, b)
	assert.NotSame(t, a, di.MustResolve[*Engine](c.OpenScope(nil)))
}

func TestScopeTransient(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*Engine](c, func() *Engine { return &Engine{} }, di.WithTransient()))

	s := c.OpenScope(nil)
	assert.NotSame(t, di.MustResolve[*Engine](s), di.MustResolve[*Engine](s))
}

func TestSingletonDependenciesResolveFromRoot(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*Wheels](c, func() *Wheels { return &Wheels{} }, di.WithScoped()))
	require.NoError(t, di.RegisterFunc[*Car](c, newCarWheels, di.WithSingleton()))

	s := c.OpenScope(nil)
	car := di.MustResolve[*Car](s)
	assert.Same(t, di.MustResolve[*Wheels](c), car.Wheels)
	assert.NotSame(t, di.MustResolve[*Wheels](s), car.Wheels)
}

func TestDispose_ReverseCreationOrder(t *testing.T) {
	log := &disposeLog{}
	c := di.NewContainer()
	registerResources(t, c, log, di.WithScoped())

	s := c.OpenScope(nil)
	_, err := di.Resolve[*ResC](s)
	require.NoError(t, err)

	require.NoError(t, c.CloseScope(s))
	assert.Equal(t, []string{"c", "b", "a"}, log.list())
}

func TestDispose_SecondCallIsNoop(t *testing.T) {
	log := &disposeLog{}
	c := di.NewContainer()
	registerResources(t, c, log, di.WithScoped())

	s := c.OpenScope(nil)
	di.MustResolve[*ResA](s)
	require.NoError(t, s.Dispose())
	require.NoError(t, s.Dispose())
	assert.Equal(t, []string{"a"}, log.list())
	assert.True(t, s.IsDisposed())
}

func TestDispose_ResolveAfterDispose(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, &Engine{}))

	s := c.OpenScope(nil)
	require.NoError(t, s.Dispose())

	_, err := di.Resolve[*Engine](s)
	require.ErrorIs(t, err, di.ErrScopeIsDisposed)

	_, err = s.Invoke(func(*Engine) {})
	require.ErrorIs(t, err, di.ErrScopeIsDisposed)

	// 在已释放的父作用域下打开的作用域同样不可用
	_, err = di.Resolve[*Engine](c.OpenScope(s))
	require.ErrorIs(t, err, di.ErrScopeIsDisposed)
}

func TestDispose_AggregatesFailures(t *testing.T) {
	log := &disposeLog{}
	errA := errors.New("a failed")
	errC := errors.New("c failed")

	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*ResA](c, func() *ResA {
		return &ResA{&resource{name: "a", log: log, err: errA}}
	}, di.WithScoped()))
	require.NoError(t, di.RegisterFunc[*ResB](c, func(*ResA) *ResB {
		return &ResB{&resource{name: "b", log: log}}
	}, di.WithScoped()))
	require.NoError(t, di.RegisterFunc[*ResC](c, func(*ResB) *ResC {
		return &ResC{&resource{name: "c", log: log, err: errC}}
	}, di.WithScoped()))

	s := c.OpenScope(nil)
	di.MustResolve[*ResC](s)

	err := s.Dispose()
	var agg *di.AggregateDisposalError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Errors, 2)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errC)
	// 失败不会中断后续释放
	assert.Equal(t, []string{"c", "b", "a"}, log.list())
}

type panicky struct{}

func (panicky) Dispose() error { panic("boom") }

func TestDispose_PanicBecomesError(t *testing.T) {
	log := &disposeLog{}
	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*ResA](c, func() *ResA {
		return &ResA{&resource{name: "a", log: log}}
	}, di.WithScoped()))
	require.NoError(t, di.RegisterFunc[panicky](c, func(*ResA) panicky { return panicky{} }, di.WithScoped()))

	s := c.OpenScope(nil)
	di.MustResolve[panicky](s)

	err := s.Dispose()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, []string{"a"}, log.list())
}

func TestDispose_TransientTracking(t *testing.T) {
	log := &disposeLog{}
	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*ResA](c, func() *ResA {
		return &ResA{&resource{name: "untracked", log: log}}
	}, di.WithTransient()))
	require.NoError(t, di.RegisterFunc[*ResB](c, func() *ResB {
		return &ResB{&resource{name: "tracked", log: log}}
	}, di.WithTransient(), di.WithTrackDisposable()))

	s := c.OpenScope(nil)
	di.MustResolve[*ResA](s)
	di.MustResolve[*ResB](s)
	di.MustResolve[*ResB](s)
	require.NoError(t, s.Dispose())

	assert.Equal(t, []string{"tracked", "tracked"}, log.list())
}

func TestDispose_CloserAndDisposer(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterFunc[*closer](c, func() *closer { return &closer{} }))

	var disposed []any
	require.NoError(t, di.RegisterFunc[*Engine](c, func() *Engine { return &Engine{Power: 1} },
		di.WithDisposer(func(v any) error {
			disposed = append(disposed, v)
			return nil
		})))

	cl := di.MustResolve[*closer](c)
	e := di.MustResolve[*Engine](c)
	require.NoError(t, c.Dispose())

	assert.True(t, cl.closed)
	require.Len(t, disposed, 1)
	assert.Same(t, e, disposed[0])
}

func TestDispose_ConstantsAreNotOwned(t *testing.T) {
	cl := &closer{}
	tracked := &closer{}
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, cl))
	require.NoError(t, di.RegisterValue(c, tracked, di.WithKey("owned"), di.WithTrackDisposable()))

	di.MustResolve[*closer](c)
	_, err := di.ResolveKeyed[*closer](c, "owned")
	require.NoError(t, err)
	require.NoError(t, c.Dispose())

	assert.False(t, cl.closed)
	assert.True(t, tracked.closed)
}

func TestDispose_ParentDisposesOpenChildren(t *testing.T) {
	log := &disposeLog{}
	c := di.NewContainer()
	registerResources(t, c, log, di.WithScoped())

	di.MustResolve[*ResA](c)
	child := c.OpenScope(nil)
	di.MustResolve[*ResB](child)

	require.NoError(t, c.Dispose())
	assert.True(t, child.IsDisposed())
	// 子作用域先于父作用域的实例释放
	assert.Equal(t, []string{"b", "a", "a"}, log.list())
}

func TestContainerDispose_RejectsRegistration(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.Dispose())
	err := di.RegisterValue(c, &Engine{})
	require.ErrorIs(t, err, di.ErrContainerDisposed)
}

func TestScopeParentAndID(t *testing.T) {
	c := di.NewContainer()
	s := c.OpenScope(nil)
	nested := c.OpenScope(s)

	assert.Same(t, c.RootScope(), s.Parent())
	assert.Same(t, s, nested.Parent())
	assert.Nil(t, c.RootScope().Parent())
	assert.NotEqual(t, s.ID(), nested.ID())
}

type ILogger interface{ Log(string) }

type ConsoleLogger struct{ lines []string }

func (l *ConsoleLogger) Log(s string) { l.lines = append(l.lines, s) }

type IService interface{ Logger() ILogger }

type ServiceImpl struct{ dep ILogger }

func NewServiceImpl(dep ILogger) *ServiceImpl { return &ServiceImpl{dep: dep} }

func (s *ServiceImpl) Logger() ILogger { return s.dep }

func TestTransientGraph(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.Register[ILogger](c, di.Use[*ConsoleLogger](), di.WithTransient()))
	require.NoError(t, di.Register[IService](c, di.WithConstructor(NewServiceImpl), di.WithTransient()))

	a := di.MustResolve[IService](c)
	b := di.MustResolve[IService](c)
	assert.NotSame(t, a, b)
	assert.NotSame(t, a.Logger(), b.Logger())
}

func TestTransientServiceSharesSingletonLogger(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.Register[ILogger](c, di.Use[*ConsoleLogger](), di.WithSingleton()))
	require.NoError(t, di.Register[IService](c, di.WithConstructor(NewServiceImpl), di.WithTransient()))

	a := di.MustResolve[IService](c)
	b := di.MustResolve[IService](c.OpenScope(nil))
	assert.NotSame(t, a, b)
	assert.Same(t, a.Logger(), b.Logger())
}
