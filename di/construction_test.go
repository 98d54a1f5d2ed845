package di_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocrud/compose/di"
)

type Service interface{ Value() string }

type someService struct{ value string }

func (s *someService) Value() string { return s.value }

type ServiceFactory struct {
	Prefix string
}

func (f *ServiceFactory) Create() Service {
	return &someService{value: f.Prefix + "instance"}
}

func (f *ServiceFactory) CreateWith(suffix string) Service {
	return &someService{value: f.Prefix + suffix}
}

func CreateService() Service { return &someService{value: "static"} }

func CreateServiceWith(dep string) Service {
	return &someService{value: "static:" + dep}
}

func TestStaticFunc(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, c.Register(di.TypeOf[Service](), di.StaticFunc(CreateService)))

	svc, err := di.Resolve[Service](c)
	require.NoError(t, err)
	assert.Equal(t, "static", svc.Value())
}

func TestStaticFunc_KeyedParameter(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, "default"))
	require.NoError(t, di.RegisterValue(c, "keyed", di.WithKey("dep")))
	require.NoError(t, c.Register(di.TypeOf[Service](), di.StaticFunc(CreateServiceWith, di.ArgKey(0, "dep"))))

	assert.Equal(t, "static:keyed", di.MustResolve[Service](c).Value())
}

func TestStaticFunc_ConstantParameter(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.Register[Service](c, di.WithFactory(CreateServiceWith, di.ArgValue(0, "bound"))))
	assert.Equal(t, "static:bound", di.MustResolve[Service](c).Value())
}

func TestInstanceFunc(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, &ServiceFactory{Prefix: "f:"}))
	require.NoError(t, di.RegisterMethod[Service](c, (*ServiceFactory).Create))

	assert.Equal(t, "f:instance", di.MustResolve[Service](c).Value())
}

func TestInstanceFunc_FactoryRegisteredWithKey(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, &ServiceFactory{Prefix: "plain:"}))
	require.NoError(t, di.RegisterValue(c, &ServiceFactory{Prefix: "keyed:"}, di.WithKey("factory")))
	require.NoError(t, di.RegisterValue(c, "suffix"))
	require.NoError(t, di.Register[Service](c, di.WithMethod((*ServiceFactory).CreateWith, di.ArgKey(0, "factory"))))

	assert.Equal(t, "keyed:suffix", di.MustResolve[Service](c).Value())
}

func TestInstanceFunc_UnresolvedFactory(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterMethod[Service](c, (*ServiceFactory).Create))

	_, err := di.Resolve[Service](c)
	require.ErrorIs(t, err, di.ErrUnableToResolveUnknownService)

	var re *di.ResolutionError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, di.TypeOf[*ServiceFactory](), re.ServiceType)

	svc, err := di.TryResolve[Service](c)
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestInstanceFunc_NullFactory(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue[*ServiceFactory](c, nil))
	require.NoError(t, di.RegisterMethod[Service](c, (*ServiceFactory).Create))

	_, err := di.Resolve[Service](c)
	require.ErrorIs(t, err, di.ErrFactoryObjIsNull)

	// 没有接收者的函数不能作为实例方法
	err = di.RegisterMethod[Service](c, CreateService)
	require.ErrorIs(t, err, di.ErrFactoryObjIsNull)

	err = c.Register(di.TypeOf[Service](), di.InstanceFunc((*ServiceFactory).Create, di.ArgValue(0, nil)))
	require.ErrorIs(t, err, di.ErrFactoryObjIsNull)
}

func TestProducer_IncompatibleResultType(t *testing.T) {
	c := di.NewContainer()

	err := c.Register(di.TypeOf[Service](), di.StaticFunc(func() *Engine { return &Engine{} }))
	require.ErrorIs(t, err, di.ErrRegisteredProducerTypeMismatch)

	err = di.RegisterMethod[*Engine](c, (*ServiceFactory).Create)
	require.ErrorIs(t, err, di.ErrRegisteredProducerTypeMismatch)

	err = di.RegisterValue[any](c, 1, di.WithValue("x"))
	require.ErrorIs(t, err, di.ErrInvalidProducer)

	assert.Equal(t, 0, c.Registry().Len())
}

func TestProducer_InvalidDefinitions(t *testing.T) {
	c := di.NewContainer()
	cases := map[string]*di.Producer{
		"not a func":        di.StaticFunc(42),
		"no result":         di.StaticFunc(func() {}),
		"error only":        di.StaticFunc(func() error { return nil }),
		"bad second result": di.StaticFunc(func() (*Engine, int) { return nil, 0 }),
		"arg out of range":  di.StaticFunc(func() *Engine { return nil }, di.ArgKey(3, "x")),
		"arg value type":    di.StaticFunc(func(int) *Engine { return nil }, di.ArgValue(0, "s")),
		"no constructors":   di.Constructor(),
		"mixed results":     di.Constructor(func() *Engine { return nil }, func() *Wheels { return nil }),
		"not a struct":      di.StructOf(di.TypeOf[int]()),
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			err := c.Register(di.TypeOf[any](), p)
			require.ErrorIs(t, err, di.ErrInvalidProducer)
		})
	}
}

func TestStructOf_UnexportedTaggedField(t *testing.T) {
	type bad struct {
		db *Database `di:""`
	}
	c := di.NewContainer()
	err := di.Register[*bad](c)
	require.ErrorIs(t, err, di.ErrInvalidProducer)
}

func TestStructOf_ValueStruct(t *testing.T) {
	type holder struct {
		DB *Database `di:""`
		Ignored string
	}
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue(c, &Database{DSN: "v"}))
	require.NoError(t, di.Register[holder](c))

	h := di.MustResolve[holder](c)
	assert.Equal(t, "v", h.DB.DSN)
	assert.Empty(t, h.Ignored)
}

func TestProducerError(t *testing.T) {
	boom := errors.New("connect refused")
	c := di.NewContainer()
	calls := 0
	require.NoError(t, di.RegisterFunc[*Database](c, func() (*Database, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &Database{DSN: "ok"}, nil
	}))

	_, err := di.Resolve[*Database](c)
	require.ErrorIs(t, err, boom)

	// 失败不会被缓存
	db, err := di.Resolve[*Database](c)
	require.NoError(t, err)
	assert.Equal(t, "ok", db.DSN)
}

func TestVariadicParameterResolvesCollection(t *testing.T) {
	c := di.NewContainer()
	require.NoError(t, di.RegisterValue[Plugin](c, &plugin{id: "a"}))
	require.NoError(t, di.RegisterValue[Plugin](c, &plugin{id: "b"}))
	require.NoError(t, di.RegisterFunc[*Consumer](c, func(ps ...Plugin) *Consumer {
		return &Consumer{Name: ps[0].ID() + ps[1].ID()}
	}))

	assert.Equal(t, "ab", di.MustResolve[*Consumer](c).Name)
}
